package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/directory-sync/pkg/audit"
	"github.com/doodlesbykumbi/directory-sync/pkg/bootstrap"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/db"
	"github.com/doodlesbykumbi/directory-sync/pkg/logging"
)

// loadConfig reads --config or the default location and applies the
// --bind-dn and --bind-password overrides when the command has them.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	bindDN, _ := cmd.Flags().GetString("bind-dn")
	bindPassword, _ := cmd.Flags().GetString("bind-password")
	return cfg.WithCredentials(bindDN, bindPassword), nil
}

// newApp loads the configuration, connects to the database and assembles
// the directory sync.
func newApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(cfg)
}

func newAppWithConfig(cfg *config.Config) (*bootstrap.App, error) {
	logger := logging.New("adsyncctl")
	audit.SetErrorLogger(logger)

	database, err := db.Connect(db.Config{})
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, bootstrap.Options{DB: database, Logger: &logger})
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("bind-dn", "", "directory bind DN (overrides configuration)")
	cmd.PersistentFlags().String("bind-password", "", "directory bind password (overrides configuration)")
}

// parseAttrs turns repeated key=value flags into search params. A key given
// more than once matches any of its values.
func parseAttrs(pairs []string) (map[string]any, error) {
	params := map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q, expected key=value", pair)
		}
		switch existing := params[key].(type) {
		case nil:
			params[key] = value
		case string:
			params[key] = []string{existing, value}
		case []string:
			params[key] = append(existing, value)
		}
	}
	return params, nil
}

func componentLogger(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
