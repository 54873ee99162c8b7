// Package db holds the SQL migrations of the directory sync schema.
package db

import "embed"

// Migrations contains migrations/*.sql for builds with embed_migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS
