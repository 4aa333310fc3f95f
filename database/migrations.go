package database

import "embed"

// Migrations holds the embedded goose migration files applied by cmd/migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
