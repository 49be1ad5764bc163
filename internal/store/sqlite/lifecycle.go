package sqlite

// Lifecycle & namespace operations: aliasing/rebinding already lives
// in keystore.go; this file covers unbind, bulk namespace/user cleanup,
// the auth-bound filter, and the SID-affected-uid query.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilkey/veilkeydb/internal/types"
)

// UIDOffset maps an App uid to its owning user id: userID = uid / UIDOffset.
const UIDOffset = 100000

// LoadKeyEntry resolves descriptor, runs check, and returns the fully
// populated KeyEntry per loadBits: the combined resolve-then-load
// operation a caller uses to read back a key end to end.
func (db *DB) LoadKeyEntry(ctx context.Context, descriptor types.KeyDescriptor, kind types.KeyType, callerUID int64, loadBits types.LoadBits, check func(types.KeyDescriptor, *types.AccessRights) error) (types.KeyEntry, error) {
	guard, access, err := db.Resolve(ctx, descriptor, kind, callerUID, check)
	if err != nil {
		return types.KeyEntry{}, err
	}
	defer guard.Release()
	return db.LoadKeyComponents(ctx, loadBits, access.KeyID)
}

// UnbindKey resolves descriptor, runs check, and marks the resolved key
// Unreferenced.
func (db *DB) UnbindKey(ctx context.Context, descriptor types.KeyDescriptor, kind types.KeyType, callerUID int64, check func(types.KeyDescriptor, *types.AccessRights) error) error {
	guard, access, err := db.Resolve(ctx, descriptor, kind, callerUID, check)
	if err != nil {
		return err
	}
	defer guard.Release()

	_, err = withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		affected, err := txMarkUnreferenced(ctx, tx, access.KeyID)
		return DoGCResult(affected, struct{}{}), err
	})
	return err
}

// txMarkUnreferenced is the mark_unreferenced primitive: it deletes
// keymetadata/keyparameter/grant rows for keyID, transitions the
// keyentry row itself to Unreferenced, and sets all of its blob rows to
// Orphaned. It never deletes a BlobEntry row directly; physical
// deletion is deferred to the collector via the GC interface. Returns
// whether the keyentry row was affected, which the caller reports as
// need_gc.
func txMarkUnreferenced(ctx context.Context, tx *Tx, keyID int64) (bool, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM keymetadata WHERE key_id = ?`, keyID); err != nil {
		return false, fmt.Errorf("deleting key metadata for %d: %w", keyID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keyparameter WHERE key_id = ?`, keyID); err != nil {
		return false, fmt.Errorf("deleting key parameters for %d: %w", keyID, err)
	}
	if _, err := deleteGrantsForKey(ctx, tx, keyID); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE keyentry SET state = ? WHERE id = ? AND state != ?`,
		int32(types.KeyLifeCycleUnreferenced), keyID, int32(types.KeyLifeCycleUnreferenced))
	if err != nil {
		return false, fmt.Errorf("marking key %d unreferenced: %w", keyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE blobentry SET state = ? WHERE key_id = ? AND state != ?`,
		int32(types.BlobStateOrphaned), keyID, int32(types.BlobStateOrphaned)); err != nil {
		return false, fmt.Errorf("orphaning blobs for key %d: %w", keyID, err)
	}
	return n > 0, nil
}

// UnbindKeysForNamespace deletes metadata/parameters/grants issued for
// keys in (kind-agnostic) scope/namespace, plus (when scope=App)
// grants received by the uid equal to namespace, then deletes the key
// entries themselves.
func (db *DB) UnbindKeysForNamespace(ctx context.Context, scope types.ScopeKind, namespace int64) error {
	if scope != types.ScopeApp && scope != types.ScopeSelinux {
		return fmt.Errorf("scope must be App or Selinux: %w", types.ErrInvalidArgument)
	}
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		ids, err := queryKeyIDs(ctx, tx, `SELECT id FROM keyentry WHERE scope_kind = ? AND namespace = ?`, int32(scope), namespace)
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		needGC := false
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM keymetadata WHERE key_id = ?`, id); err != nil {
				return TxResult[struct{}]{}, err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM keyparameter WHERE key_id = ?`, id); err != nil {
				return TxResult[struct{}]{}, err
			}
			if _, err := deleteGrantsForKey(ctx, tx, id); err != nil {
				return TxResult[struct{}]{}, err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE blobentry SET state = ? WHERE key_id = ? AND state != ?`,
				int32(types.BlobStateOrphaned), id, int32(types.BlobStateOrphaned)); err != nil {
				return TxResult[struct{}]{}, err
			}
			needGC = true
		}
		if scope == types.ScopeApp {
			if _, err := deleteGrantsReceivedBy(ctx, tx, namespace); err != nil {
				return TxResult[struct{}]{}, err
			}
		}
		if len(ids) > 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM keyentry WHERE scope_kind = ? AND namespace = ?`, int32(scope), namespace); err != nil {
				return TxResult[struct{}]{}, err
			}
		}
		return DoGCResult(needGC, struct{}{}), nil
	})
	return err
}

// UnbindKeysForUser deletes all grants received by any uid belonging to
// userID, then marks-unreferenced every client key whose owning uid maps
// to userID and every super key whose Selinux namespace equals userID.
func (db *DB) UnbindKeysForUser(ctx context.Context, userID int64) error {
	return db.unbindForUser(ctx, userID, false)
}

// UnbindAuthBoundKeysForUser is the same sweep, restricted to keys whose
// parameter set carries at least one UserSecureID entry. Used when the
// screen lock credential backing those keys is removed.
func (db *DB) UnbindAuthBoundKeysForUser(ctx context.Context, userID int64) error {
	return db.unbindForUser(ctx, userID, true)
}

func (db *DB) unbindForUser(ctx context.Context, userID int64, authBoundOnly bool) error {
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		grantees, err := queryKeyIDs(ctx, tx,
			`SELECT DISTINCT grantee FROM grant_ WHERE grantee / ? = ?`, UIDOffset, userID)
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		for _, uid := range grantees {
			if _, err := deleteGrantsReceivedBy(ctx, tx, uid); err != nil {
				return TxResult[struct{}]{}, err
			}
		}

		clientIDs, err := queryKeyIDs(ctx, tx,
			`SELECT id FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace / ? = ?`,
			int32(types.KeyTypeClient), int32(types.ScopeApp), UIDOffset, userID)
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		superIDs, err := queryKeyIDs(ctx, tx,
			`SELECT id FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace = ?`,
			int32(types.KeyTypeSuper), int32(types.ScopeSelinux), userID)
		if err != nil {
			return TxResult[struct{}]{}, err
		}

		needGC := false
		for _, id := range append(clientIDs, superIDs...) {
			if authBoundOnly {
				isBound, err := keyIsAuthBound(ctx, tx, id)
				if err != nil {
					return TxResult[struct{}]{}, err
				}
				if !isBound {
					continue
				}
			}
			affected, err := txMarkUnreferenced(ctx, tx, id)
			if err != nil {
				return TxResult[struct{}]{}, err
			}
			needGC = needGC || affected
		}
		return DoGCResult(needGC, struct{}{}), nil
	})
	return err
}

func keyIsAuthBound(ctx context.Context, tx *Tx, keyID int64) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM keyparameter WHERE key_id = ? AND tag = ? LIMIT 1`, keyID, int32(types.ParamUserSecureID)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetAppUIDsAffectedBySID returns the set of owning uids in userID whose
// keys carry a UserSecureID(secureUserID) parameter. Candidate (id, uid)
// pairs are gathered in one transaction; each candidate's parameters are
// then checked in a short transaction of its own, tolerating the key
// having disappeared concurrently.
func (db *DB) GetAppUIDsAffectedBySID(ctx context.Context, userID, secureUserID int64) ([]int64, error) {
	type candidate struct {
		id  int64
		uid int64
	}
	candidates, err := withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[[]candidate], error) {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, namespace FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace / ? = ? AND state = ?`,
			int32(types.KeyTypeClient), int32(types.ScopeApp), UIDOffset, userID, int32(types.KeyLifeCycleLive))
		if err != nil {
			return TxResult[[]candidate]{}, err
		}
		defer rows.Close()
		var out []candidate
		for rows.Next() {
			var c candidate
			if err := rows.Scan(&c.id, &c.uid); err != nil {
				return TxResult[[]candidate]{}, err
			}
			out = append(out, c)
		}
		return NoGCResult(out), rows.Err()
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var uids []int64
	for _, c := range candidates {
		params, err := withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[[]types.KeyParameter], error) {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM keyentry WHERE id = ?`, c.id).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return NoGCResult[[]types.KeyParameter](nil), nil // deleted concurrently; skip
			}
			if err != nil {
				return TxResult[[]types.KeyParameter]{}, err
			}
			p, err := loadKeyParameters(ctx, tx, c.id)
			return NoGCResult(p), err
		})
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			if p.Tag == types.ParamUserSecureID && p.IntValue == secureUserID {
				if _, ok := seen[c.uid]; !ok {
					seen[c.uid] = struct{}{}
					uids = append(uids, c.uid)
				}
				break
			}
		}
	}
	return uids, nil
}

func queryKeyIDs(ctx context.Context, tx *Tx, query string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
