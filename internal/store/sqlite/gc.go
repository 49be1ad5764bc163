package sqlite

// Garbage-collection interface: exposes superseded/orphaned blobs to
// an external collector in bounded batches and applies the collector's
// confirmations.

import (
	"context"

	"github.com/veilkey/veilkeydb/internal/types"
)

// HandleNextSupersededBlobs is the sole entry point the external
// collector drives, repeatedly, feeding back confirmed_ids from its
// previous call:
//
//  1. Delete the blob (and its metadata) for every id in confirmedIDs,
//     since the collector has finished handing these to the crypto back-end.
//  2. cleanup_unreferenced: purge metadata/parameters/grants for every
//     Unreferenced keyentry row, mark its blobs Orphaned, then delete
//     those rows.
//  3. Query up to maxBatch KeyBlob rows whose state is not Current, with
//     their metadata loaded.
//  4. If step 3 found rows, return them.
//  5. Otherwise, in the same transaction, delete all non-KeyBlob rows
//     (Cert/CertChain) whose state is not Current, and return [].
//
// The store never deletes a KeyBlob row until the collector confirms
// it: at-least-once invocation of the back-end's delete-key operation
// is the contract this maintains.
func (db *DB) HandleNextSupersededBlobs(ctx context.Context, confirmedIDs []int64, maxBatch int) ([]types.SupersededBlob, error) {
	if maxBatch <= 0 || maxBatch > db.gcBatch {
		maxBatch = db.gcBatch
	}
	return withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[[]types.SupersededBlob], error) {
		for _, id := range confirmedIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM blobmetadata WHERE blob_id = ?`, id); err != nil {
				return TxResult[[]types.SupersededBlob]{}, err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM blobentry WHERE id = ?`, id); err != nil {
				return TxResult[[]types.SupersededBlob]{}, err
			}
		}

		if err := txCleanupUnreferenced(ctx, tx); err != nil {
			return TxResult[[]types.SupersededBlob]{}, err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT id, blob FROM blobentry WHERE subcomponent = ? AND state != ? ORDER BY id LIMIT ?`,
			int32(types.SubComponentKeyBlob), int32(types.BlobStateCurrent), maxBatch)
		if err != nil {
			return TxResult[[]types.SupersededBlob]{}, err
		}
		var batch []types.SupersededBlob
		for rows.Next() {
			var id int64
			var blob []byte
			if err := rows.Scan(&id, &blob); err != nil {
				rows.Close()
				return TxResult[[]types.SupersededBlob]{}, err
			}
			batch = append(batch, types.SupersededBlob{BlobID: id, SubComponent: types.SubComponentKeyBlob, Blob: blob})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return TxResult[[]types.SupersededBlob]{}, err
		}
		rows.Close()

		for i := range batch {
			meta, err := loadBlobMetaData(ctx, tx, batch[i].BlobID)
			if err != nil {
				return TxResult[[]types.SupersededBlob]{}, err
			}
			batch[i].Meta = meta
		}

		if len(batch) > 0 {
			return NoGCResult(batch), nil
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM blobmetadata WHERE blob_id IN (
			    SELECT id FROM blobentry WHERE subcomponent != ? AND state != ?
			 )`, int32(types.SubComponentKeyBlob), int32(types.BlobStateCurrent)); err != nil {
			return TxResult[[]types.SupersededBlob]{}, err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM blobentry WHERE subcomponent != ? AND state != ?`,
			int32(types.SubComponentKeyBlob), int32(types.BlobStateCurrent)); err != nil {
			return TxResult[[]types.SupersededBlob]{}, err
		}
		return NoGCResult[[]types.SupersededBlob](nil), nil
	})
}

// txCleanupUnreferenced removes metadata/parameters/grants for keyentry
// rows in state Unreferenced, marks their blob rows Orphaned (a key
// displaced by rebind_alias still has Current blobs at this point), then
// deletes those keyentry rows. Blob rows are never deleted here; the
// KeyBlob/Cert/CertChain deletion steps around this call remove them.
func txCleanupUnreferenced(ctx context.Context, tx *Tx) error {
	ids, err := queryKeyIDs(ctx, tx, `SELECT id FROM keyentry WHERE state = ?`, int32(types.KeyLifeCycleUnreferenced))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM keymetadata WHERE key_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM keyparameter WHERE key_id = ?`, id); err != nil {
			return err
		}
		if _, err := deleteGrantsForKey(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE blobentry SET state = ? WHERE key_id = ? AND state != ?`,
			int32(types.BlobStateOrphaned), id, int32(types.BlobStateOrphaned)); err != nil {
			return err
		}
	}
	if len(ids) > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM keyentry WHERE state = ?`, int32(types.KeyLifeCycleUnreferenced)); err != nil {
			return err
		}
	}
	return nil
}
