package sqlite

// Startup leftover sweep and row-count diagnostics.

import "context"

// CleanupLeftovers runs the startup reconciliation pass: transition
// every Existing entry to Unreferenced (the same rule Open already
// applies before serving any client), then run one pass of
// cleanup_unreferenced to reclaim rows left behind by a crash between
// mark_unreferenced and the collector's next GC cycle.
func (db *DB) CleanupLeftovers(ctx context.Context) error {
	if err := db.sweepExistingOnStartup(); err != nil {
		return err
	}
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		return NoGCResult(struct{}{}), txCleanupUnreferenced(ctx, tx)
	})
	return err
}

// Stats is a row count per table, for diagnostics.
type Stats struct {
	KeyEntries     int64
	BlobEntries    int64
	BlobMetaData   int64
	KeyParameters  int64
	KeyMetaData    int64
	Grants         int64
}

// Stats reports row counts across every table this package owns.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	return withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[Stats], error) {
		var s Stats
		for table, dst := range map[string]*int64{
			"keyentry":     &s.KeyEntries,
			"blobentry":    &s.BlobEntries,
			"blobmetadata": &s.BlobMetaData,
			"keyparameter": &s.KeyParameters,
			"keymetadata":  &s.KeyMetaData,
			"grant_":       &s.Grants,
		} {
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil {
				return TxResult[Stats]{}, err
			}
		}
		return NoGCResult(s), nil
	})
}
