package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
	assert.True(t, Debug("debug"))
	assert.True(t, Debug("trace"))
	assert.False(t, Debug("info"))
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("adsyncctl", &buf, "json", "info")

	logger.Debug().Msg("hidden")
	logger.Info().Str("model", "user").Msg("reconciled batch")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "adsyncctl", line["app"])
	assert.Equal(t, "user", line["model"])
	assert.Equal(t, "reconciled batch", line["message"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("adsyncctl", &buf, "", "debug")
	logger.Debug().Msg("bound to directory")
	assert.Contains(t, buf.String(), "bound to directory")
}
