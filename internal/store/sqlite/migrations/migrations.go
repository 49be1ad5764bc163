// Package migrations holds the ordered, idempotent upgrade steps that
// carry an existing persistent.sqlite forward to the current schema
// version. Each step runs inside the single write
// transaction the migrator opened for it; a step must never begin its
// own transaction.
package migrations

import (
	"database/sql"
	"fmt"
)

// Step upgrades the schema by exactly one version. It must be safe to
// run twice in a row with no effect the second time.
type Step struct {
	FromVersion int
	Func        func(tx *sql.Tx) error
}

// All is the totally ordered list of migrations, run in order starting
// from whatever version is currently stored.
var All = []Step{
	{FromVersion: 0, Func: MigrateBootLevelUnreferenced},
	{FromVersion: 1, Func: MigrateBlobState},
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
