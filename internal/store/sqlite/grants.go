package sqlite

// Grant table: create/update/delete grants, randomized unique grant
// ids.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilkey/veilkeydb/internal/types"
)

// Grant resolves descriptor as a client key, invokes check with the
// canonical descriptor and the requested rights, and then either updates
// an existing (grantee, key) row's rights in place or inserts a new row
// with a fresh random id. Returns a Grant-tag descriptor naming the row.
//
// Granting a Grant descriptor is impossible by construction: resolving a
// Grant descriptor never yields a rights vector containing RightGrant,
// so check rejects it the same way any other missing right would be
// rejected; this function does not special-case the tag.
func (db *DB) Grant(ctx context.Context, descriptor types.KeyDescriptor, callerUID, grantee int64, rights types.AccessRights, check func(types.KeyDescriptor, *types.AccessRights) error) (types.KeyDescriptor, error) {
	access, err := withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[types.ResolvedAccess], error) {
		ra, err := txResolve(ctx, tx, descriptor, types.KeyTypeClient, callerUID)
		if err != nil {
			return TxResult[types.ResolvedAccess]{}, err
		}
		if err := check(ra.Descriptor, &rights); err != nil {
			return TxResult[types.ResolvedAccess]{}, err
		}
		return NoGCResult(ra), nil
	})
	if err != nil {
		return types.KeyDescriptor{}, err
	}

	grantID, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[int64], error) {
		var existingID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM grant_ WHERE key_id = ? AND grantee = ?`, access.KeyID, grantee).Scan(&existingID)
		if err == nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE grant_ SET access_vector = ? WHERE id = ?`, int64(rights), existingID); err != nil {
				return TxResult[int64]{}, err
			}
			return NoGCResult(existingID), nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return TxResult[int64]{}, err
		}

		id, err := allocateGrantID(ctx, tx)
		if err != nil {
			return TxResult[int64]{}, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO grant_ (id, grantee, key_id, access_vector) VALUES (?, ?, ?, ?)`,
			id, grantee, access.KeyID, int64(rights)); err != nil {
			return TxResult[int64]{}, err
		}
		return NoGCResult(id), nil
	})
	if err != nil {
		return types.KeyDescriptor{}, err
	}
	return types.KeyDescriptor{Tag: types.DescriptorGrant, Namespace: grantID}, nil
}

// Ungrant resolves descriptor as a client key, runs check, and deletes
// the (grantee, key) grant row if one exists. No GC follows: grant rows
// carry no blob ownership.
func (db *DB) Ungrant(ctx context.Context, descriptor types.KeyDescriptor, callerUID, grantee int64, check func(types.KeyDescriptor, *types.AccessRights) error) error {
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		ra, err := txResolve(ctx, tx, descriptor, types.KeyTypeClient, callerUID)
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		if err := check(ra.Descriptor, nil); err != nil {
			return TxResult[struct{}]{}, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM grant_ WHERE key_id = ? AND grantee = ?`, ra.KeyID, grantee); err != nil {
			return TxResult[struct{}]{}, err
		}
		return NoGCResult(struct{}{}), nil
	})
	return err
}

// deleteGrantsForKey removes every grant row referencing keyID (spec
// invariant #6: deleting a key deletes its grants). Returns the number
// of rows removed.
func deleteGrantsForKey(ctx context.Context, tx *Tx, keyID int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM grant_ WHERE key_id = ?`, keyID)
	if err != nil {
		return 0, fmt.Errorf("deleting grants for key %d: %w", keyID, err)
	}
	n, err := res.RowsAffected()
	return n, err
}

// deleteGrantsReceivedBy removes every grant row whose grantee is uid,
// used by namespace/user unbind.
func deleteGrantsReceivedBy(ctx context.Context, tx *Tx, uid int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM grant_ WHERE grantee = ?`, uid)
	if err != nil {
		return 0, fmt.Errorf("deleting grants received by %d: %w", uid, err)
	}
	n, err := res.RowsAffected()
	return n, err
}
