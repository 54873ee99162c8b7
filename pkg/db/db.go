package db

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/directory-sync/pkg/logging"
)

// MigrationsTable is the table golang-migrate records the schema version in.
const MigrationsTable = "go_schema_migrations"

// Config holds database connection configuration
type Config struct {
	// URL is the database connection URL (defaults to DATABASE_URL env var)
	URL string
	// LogLevel enables SQL logging at "debug" (defaults to ADSYNC_LOG_LEVEL env var)
	LogLevel string
}

// Connect establishes a database connection.
// If no URL is provided, it reads from DATABASE_URL environment variable.
func Connect(cfg Config) (*gorm.DB, error) {
	dbURL := cfg.URL
	if dbURL == "" {
		dbURL = URL()
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	level := cfg.LogLevel
	if level == "" {
		level = os.Getenv("ADSYNC_LOG_LEVEL")
	}
	logMode := logger.Silent
	if logging.Debug(level) {
		logMode = logger.Info
	}

	db, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// URL returns the database URL from environment.
// Returns empty string if DATABASE_URL is not set.
func URL() string {
	return os.Getenv("DATABASE_URL")
}

// MigrationURL returns dbURL with the migrations table parameter golang-migrate
// understands appended.
func MigrationURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}
	param := "x-migrations-table=" + MigrationsTable
	if strings.Contains(dbURL, "?") {
		return dbURL + "&" + param
	}
	return dbURL + "?" + param
}
