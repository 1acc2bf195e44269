// Package apidb holds all the migrations for the API database
package apidb

import "github.com/uptrace/bun/migrate"

// Migrations is the registry all numbered migration files register into.
var Migrations = migrate.NewMigrations()
