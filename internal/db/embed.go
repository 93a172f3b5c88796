// Package db holds the goose migrations for the service schema.
package db

import "embed"

// Migrations are applied by cmd/migrate and by the repository integration tests
//
//go:embed migrations/*.sql
var Migrations embed.FS
