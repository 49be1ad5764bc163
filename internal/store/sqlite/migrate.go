package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/veilkey/veilkeydb/internal/store/sqlite/migrations"
)

// runMigrations advances db from its stored schema version to
// CurrentSchemaVersion, one step at a time, each inside its own write
// transaction that advances the stored version only on success.
// Migrations are totally ordered and idempotent under retry:
// re-running this function on an already-current database performs
// zero writes.
func runMigrations(db *sql.DB) error {
	for _, step := range migrations.All {
		if err := runOneMigration(db, step); err != nil {
			return fmt.Errorf("migration from v%d: %w", step.FromVersion, err)
		}
	}
	return nil
}

func runOneMigration(db *sql.DB, step migrations.Step) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var version int
	if err := tx.QueryRow(`SELECT version FROM schema_version WHERE id = 0`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != step.FromVersion {
		// Either already past this step, or (should never happen given
		// the ordered list) out of sequence; either way there is nothing
		// for this step to do.
		return tx.Commit()
	}

	if err := step.Func(tx); err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE schema_version SET version = ? WHERE id = 0`, step.FromVersion+1); err != nil {
		return fmt.Errorf("advancing schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SchemaVersion returns the version currently stored in db.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.sql.QueryRow(`SELECT version FROM schema_version WHERE id = 0`).Scan(&version)
	return version, err
}
