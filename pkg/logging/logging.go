// Package logging builds the zerolog loggers used across directory sync.
//
// ADSYNC_LOG_LEVEL selects the level (debug, info, warn, error; default info)
// and ADSYNC_LOG_FORMAT selects console or json output (default console).
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New creates the process logger for app and installs it as the global
// zerolog logger.
func New(app string) zerolog.Logger {
	logger := NewWithWriter(app, os.Stdout, os.Getenv("ADSYNC_LOG_FORMAT"), os.Getenv("ADSYNC_LOG_LEVEL"))
	log.Logger = logger
	return logger
}

// NewWithWriter creates a logger writing to out.
func NewWithWriter(app string, out io.Writer, format, level string) zerolog.Logger {
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().Timestamp().Str("app", app).
		Logger()
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Debug reports whether level enables debug output, e.g. for SQL logging.
func Debug(level string) bool {
	return ParseLevel(level) <= zerolog.DebugLevel
}
