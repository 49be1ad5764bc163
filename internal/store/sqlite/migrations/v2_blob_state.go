package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateBlobState is the v1->v2 step: adds the
// state column to blobentry (default Current = 0), marks every
// non-latest blob per (key_id, subcomponent) Superseded (=1), marks
// every blob whose owning key_id is absent Orphaned (=2), and creates
// the two supporting indices. Idempotent: on a database that already
// has the column (e.g. one created from the current schema.go), this
// is a no-op column check followed by CREATE INDEX IF NOT EXISTS and
// UPDATE statements that match no rows.
func MigrateBlobState(tx *sql.Tx) error {
	hasState, err := columnExists(tx, "blobentry", "state")
	if err != nil {
		return fmt.Errorf("checking blobentry.state: %w", err)
	}
	if !hasState {
		if _, err := tx.Exec(`ALTER TABLE blobentry ADD COLUMN state INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("adding blobentry.state: %w", err)
		}
	}

	// Mark every blob that is not the most recent (highest id) row for
	// its (key_id, subcomponent) pair as Superseded.
	if _, err := tx.Exec(`
		UPDATE blobentry
		SET state = 1
		WHERE state = 0
		  AND id NOT IN (
		      SELECT MAX(id) FROM blobentry GROUP BY key_id, subcomponent
		  )
	`); err != nil {
		return fmt.Errorf("marking superseded blobs: %w", err)
	}

	// Mark every blob whose owning key no longer exists as Orphaned.
	if _, err := tx.Exec(`
		UPDATE blobentry
		SET state = 2
		WHERE key_id != -1
		  AND key_id NOT IN (SELECT id FROM keyentry)
	`); err != nil {
		return fmt.Errorf("marking orphaned blobs: %w", err)
	}

	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_blobentry_subcomponent_state ON blobentry(subcomponent, state)`); err != nil {
		return fmt.Errorf("creating blobentry index: %w", err)
	}
	if _, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_keyentry_state ON keyentry(state)`); err != nil {
		return fmt.Errorf("creating keyentry index: %w", err)
	}
	return nil
}
