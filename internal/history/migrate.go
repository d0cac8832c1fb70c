package history

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending goose migration in migrations/ against db
// (a *sql.DB opened against Postgres). Grounded on the teacher's
// MigrationManager (internal/infrastructure/migrations/manager.go), scoped
// down to this package's own bookkeeping schema.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
