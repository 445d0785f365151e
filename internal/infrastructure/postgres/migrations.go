// Package postgres implements the lending repositories and the credit
// ledger on PostgreSQL via pgx.
package postgres

import (
	"embed"

	pkgpostgres "github.com/bibbank/installment-lending/pkg/postgres"
)

// Migrations holds the schema, applied with golang-migrate at start-up.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files.
const MigrationsDir = "migrations"

// Migrate applies all pending schema migrations and returns the schema
// version now in place.
func Migrate(dsn string) (uint, error) {
	return pkgpostgres.RunMigrations(dsn, Migrations, MigrationsDir)
}
