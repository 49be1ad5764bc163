package sqlite

// Key & blob store: CRUD for key entries, blobs, blob metadata, key
// parameters and key metadata, enforcing the blob-state transitions and
// alias-uniqueness invariants.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilkey/veilkeydb/internal/keylock"
	"github.com/veilkey/veilkeydb/internal/types"
)

// CreateKeyEntry allocates a fresh id, inserts a row in the Existing
// lifecycle state, and returns a held KeyIdGuard. Only App and Selinux
// scopes are valid owners.
func (db *DB) CreateKeyEntry(ctx context.Context, scope types.Scope, kind types.KeyType, backendUUID types.UUID) (*keylock.Guard, int64, error) {
	if !scope.Kind.Valid() {
		return nil, 0, fmt.Errorf("scope %v: %w", scope.Kind, types.ErrInvalidArgument)
	}
	id, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[int64], error) {
		id, err := allocateKeyID(ctx, tx)
		if err != nil {
			return TxResult[int64]{}, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO keyentry (id, key_type, scope_kind, namespace, alias, state, km_uuid)
			 VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			id, int32(kind), int32(scope.Kind), scope.Namespace, int32(types.KeyLifeCycleExisting), backendUUID.Bytes())
		if err != nil {
			return TxResult[int64]{}, err
		}
		return NoGCResult(id), nil
	})
	if err != nil {
		return nil, 0, err
	}
	return db.locks.Acquire(id), id, nil
}

// SetBlob inserts a new Current blob for (guard.ID(), subcomponent),
// superseding any existing Current blob of the same (key, subcomponent)
// in the same transaction. Absent bytes is only valid for Cert/CertChain,
// which is then physically deleted; absent bytes on KeyBlob is rejected.
func (db *DB) SetBlob(ctx context.Context, guard *keylock.Guard, sub types.SubComponentType, blob []byte, meta types.BlobMetaData) error {
	keyID := guard.ID()
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		needGC, err := txSetBlob(ctx, tx, keyID, sub, blob, meta)
		return DoGCResult(needGC, struct{}{}), err
	})
	return err
}

func txSetBlob(ctx context.Context, tx *Tx, keyID int64, sub types.SubComponentType, blob []byte, meta types.BlobMetaData) (bool, error) {
	if blob == nil {
		if sub == types.SubComponentKeyBlob {
			return false, fmt.Errorf("key blob may not be deleted via SetBlob: %w", types.ErrInvalidArgument)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM blobentry WHERE key_id = ? AND subcomponent = ? AND state = ?`,
			keyID, int32(sub), int32(types.BlobStateCurrent))
		if err != nil {
			return false, err
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	}
	return txInsertCurrentBlob(ctx, tx, keyID, sub, blob, meta)
}

// txInsertCurrentBlob supersedes any existing Current blob for
// (keyID, sub) and inserts the new one as Current, in the same
// transaction (invariant #4).
func txInsertCurrentBlob(ctx context.Context, tx *Tx, keyID int64, sub types.SubComponentType, blob []byte, meta types.BlobMetaData) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE blobentry SET state = ? WHERE key_id = ? AND subcomponent = ? AND state = ?`,
		int32(types.BlobStateSuperseded), keyID, int32(sub), int32(types.BlobStateCurrent))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	superseded := n > 0

	result, err := tx.ExecContext(ctx,
		`INSERT INTO blobentry (subcomponent, key_id, blob, state) VALUES (?, ?, ?, ?)`,
		int32(sub), keyID, blob, int32(types.BlobStateCurrent))
	if err != nil {
		return false, err
	}
	blobID, err := result.LastInsertId()
	if err != nil {
		return false, err
	}
	if err := insertBlobMetaData(ctx, tx, blobID, meta); err != nil {
		return false, err
	}
	return superseded, nil
}

// SetDeletedBlob stages a legacy key blob: it inserts a Current KeyBlob
// owned by the unassigned sentinel and flags need_gc. The row stays
// Current; HandleNextSupersededBlobs returns only non-Current key blobs,
// so it does not return this row.
func (db *DB) SetDeletedBlob(ctx context.Context, blob []byte, meta types.BlobMetaData) error {
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO blobentry (subcomponent, key_id, blob, state) VALUES (?, ?, ?, ?)`,
			int32(types.SubComponentKeyBlob), types.UnassignedKeyID, blob, int32(types.BlobStateCurrent))
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		blobID, err := result.LastInsertId()
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		if err := insertBlobMetaData(ctx, tx, blobID, meta); err != nil {
			return TxResult[struct{}]{}, err
		}
		return NeedGCResult(struct{}{}), nil
	})
	return err
}

// BlobInfo is the (bytes, metadata) pair set_blob-family operations take
// for one subcomponent.
type BlobInfo struct {
	Blob []byte
	Meta types.BlobMetaData
}

// CertInfo carries optional cert and cert-chain bytes.
type CertInfo struct {
	Cert      []byte
	CertChain []byte
}

// StoreNewKey is the atomic pipeline for importing a freshly-generated
// or upgraded key: create entry, optionally insert a superseded prior
// blob (legacy upgrade import), insert the current key blob/cert/cert-
// chain, insert parameters and metadata, and rebind the alias. Returns
// the held guard.
func (db *DB) StoreNewKey(
	ctx context.Context,
	descriptor types.KeyDescriptor,
	kind types.KeyType,
	params []types.KeyParameter,
	blobInfo BlobInfo,
	priorSupersededBlob []byte,
	certInfo CertInfo,
	metadata types.KeyMetaData,
	backendUUID types.UUID,
) (*keylock.Guard, types.KeyEntry, error) {
	scope, err := scopeFromDescriptor(descriptor)
	if err != nil {
		return nil, types.KeyEntry{}, err
	}
	if !descriptor.HasAlias || descriptor.Alias == "" {
		return nil, types.KeyEntry{}, fmt.Errorf("alias required: %w", types.ErrInvalidArgument)
	}

	type storeResult struct {
		id    int64
		entry types.KeyEntry
	}

	res, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[storeResult], error) {
		id, err := allocateKeyID(ctx, tx)
		if err != nil {
			return TxResult[storeResult]{}, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO keyentry (id, key_type, scope_kind, namespace, alias, state, km_uuid)
			 VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			id, int32(kind), int32(scope.Kind), scope.Namespace, int32(types.KeyLifeCycleExisting), backendUUID.Bytes())
		if err != nil {
			return TxResult[storeResult]{}, err
		}

		needGC := false
		if priorSupersededBlob != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO blobentry (subcomponent, key_id, blob, state) VALUES (?, ?, ?, ?)`,
				int32(types.SubComponentKeyBlob), id, priorSupersededBlob, int32(types.BlobStateSuperseded)); err != nil {
				return TxResult[storeResult]{}, err
			}
			needGC = true
		}

		if gc, err := txInsertCurrentBlob(ctx, tx, id, types.SubComponentKeyBlob, blobInfo.Blob, blobInfo.Meta); err != nil {
			return TxResult[storeResult]{}, err
		} else {
			needGC = needGC || gc
		}
		if certInfo.Cert != nil {
			if gc, err := txInsertCurrentBlob(ctx, tx, id, types.SubComponentCert, certInfo.Cert, types.BlobMetaData{}); err != nil {
				return TxResult[storeResult]{}, err
			} else {
				needGC = needGC || gc
			}
		}
		if certInfo.CertChain != nil {
			if gc, err := txInsertCurrentBlob(ctx, tx, id, types.SubComponentCertChain, certInfo.CertChain, types.BlobMetaData{}); err != nil {
				return TxResult[storeResult]{}, err
			} else {
				needGC = needGC || gc
			}
		}

		if err := insertKeyParameters(ctx, tx, id, params); err != nil {
			return TxResult[storeResult]{}, err
		}
		if metadata.CreationDate == nil {
			now := types.Now()
			metadata.CreationDate = &now
		}
		if err := insertKeyMetaData(ctx, tx, id, metadata); err != nil {
			return TxResult[storeResult]{}, err
		}

		displaced, err := txRebindAlias(ctx, tx, id, kind, scope, descriptor.Alias)
		if err != nil {
			return TxResult[storeResult]{}, err
		}
		needGC = needGC || displaced

		entry := types.KeyEntry{ID: id, KeyType: kind, Scope: scope, Alias: descriptor.Alias, HasAlias: true,
			LifeCycle: types.KeyLifeCycleLive, KmUUID: backendUUID, Parameters: params, Metadata: metadata}
		return DoGCResult(needGC, storeResult{id: id, entry: entry}), nil
	})
	if err != nil {
		return nil, types.KeyEntry{}, err
	}
	return db.locks.Acquire(res.id), res.entry, nil
}

// StoreNewCertificate is the certificate-only pipeline: stamps a
// creation date and rebinds the alias, with no key-blob involved.
func (db *DB) StoreNewCertificate(ctx context.Context, descriptor types.KeyDescriptor, kind types.KeyType, cert []byte, backendUUID types.UUID) (*keylock.Guard, int64, error) {
	scope, err := scopeFromDescriptor(descriptor)
	if err != nil {
		return nil, 0, err
	}
	if !descriptor.HasAlias || descriptor.Alias == "" {
		return nil, 0, fmt.Errorf("alias required: %w", types.ErrInvalidArgument)
	}

	id, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[int64], error) {
		id, err := allocateKeyID(ctx, tx)
		if err != nil {
			return TxResult[int64]{}, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO keyentry (id, key_type, scope_kind, namespace, alias, state, km_uuid)
			 VALUES (?, ?, ?, ?, NULL, ?, ?)`,
			id, int32(kind), int32(scope.Kind), scope.Namespace, int32(types.KeyLifeCycleExisting), backendUUID.Bytes())
		if err != nil {
			return TxResult[int64]{}, err
		}
		if _, err := txInsertCurrentBlob(ctx, tx, id, types.SubComponentCert, cert, types.BlobMetaData{}); err != nil {
			return TxResult[int64]{}, err
		}
		now := types.Now()
		if err := insertKeyMetaData(ctx, tx, id, types.KeyMetaData{CreationDate: &now}); err != nil {
			return TxResult[int64]{}, err
		}
		displaced, err := txRebindAlias(ctx, tx, id, kind, scope, descriptor.Alias)
		if err != nil {
			return TxResult[int64]{}, err
		}
		return DoGCResult(displaced, id), nil
	})
	if err != nil {
		return nil, 0, err
	}
	return db.locks.Acquire(id), id, nil
}

// txRebindAlias implements the rebind-alias algorithm: (a) any existing
// Live row with the same (kind, scope, alias) is
// unbound and marked Unreferenced, then (b) the given id is promoted
// from Existing to Live with the alias. Returns whether (a) displaced a
// row, which the caller reports as need_gc.
func txRebindAlias(ctx context.Context, tx *Tx, id int64, kind types.KeyType, scope types.Scope, alias string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE keyentry SET alias = NULL, scope_kind = scope_kind, state = ?
		 WHERE key_type = ? AND scope_kind = ? AND namespace = ? AND alias = ? AND state = ? AND id != ?`,
		int32(types.KeyLifeCycleUnreferenced), int32(kind), int32(scope.Kind), scope.Namespace, alias,
		int32(types.KeyLifeCycleLive), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	displaced := n > 0

	res2, err := tx.ExecContext(ctx,
		`UPDATE keyentry SET alias = ?, state = ? WHERE id = ? AND state = ?`,
		alias, int32(types.KeyLifeCycleLive), id, int32(types.KeyLifeCycleExisting))
	if err != nil {
		return false, err
	}
	n2, err := res2.RowsAffected()
	if err != nil {
		return false, err
	}
	if n2 != 1 {
		return false, wrapInvariant("rebind promoted %d rows, expected 1", n2)
	}
	return displaced, nil
}

// RebindAlias is the standalone entry point callers use once a key's
// blobs/params/metadata are already in place.
func (db *DB) RebindAlias(ctx context.Context, guard *keylock.Guard, kind types.KeyType, scope types.Scope, alias string) error {
	keyID := guard.ID()
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		displaced, err := txRebindAlias(ctx, tx, keyID, kind, scope, alias)
		return DoGCResult(displaced, struct{}{}), err
	})
	return err
}

// MigrateKeyNamespace rewrites (scope, namespace, alias) on the given
// id. Destination App scope is forced to callerUID. check is invoked
// with the destination descriptor and its error propagated unchanged.
func (db *DB) MigrateKeyNamespace(ctx context.Context, guard *keylock.Guard, destination types.KeyDescriptor, callerUID int64, check func(types.KeyDescriptor) error) error {
	if destination.Tag != types.DescriptorApp && destination.Tag != types.DescriptorSelinux {
		return fmt.Errorf("migration destination must be App or Selinux: %w", types.ErrInvalidArgument)
	}
	if !destination.HasAlias || destination.Alias == "" {
		return fmt.Errorf("migration destination requires an alias: %w", types.ErrInvalidArgument)
	}
	scope := types.Scope{Kind: scopeKindFromTag(destination.Tag), Namespace: destination.Namespace}
	if destination.Tag == types.DescriptorApp {
		scope.Namespace = callerUID
	}
	destination.Namespace = scope.Namespace

	if err := check(destination); err != nil {
		return err
	}

	keyID := guard.ID()
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		var kind int64
		if err := tx.QueryRowContext(ctx, `SELECT key_type FROM keyentry WHERE id = ?`, keyID).Scan(&kind); err != nil {
			return TxResult[struct{}]{}, fmt.Errorf("loading key type: %w", err)
		}

		var occupied int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace = ? AND alias = ? AND state = ? AND id != ?`,
			kind, int32(scope.Kind), scope.Namespace, destination.Alias, int32(types.KeyLifeCycleLive), keyID).Scan(&occupied)
		if err == nil {
			return TxResult[struct{}]{}, fmt.Errorf("destination already occupied: %w", types.ErrInvalidArgument)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return TxResult[struct{}]{}, err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE keyentry SET scope_kind = ?, namespace = ?, alias = ? WHERE id = ? AND state = ?`,
			int32(scope.Kind), scope.Namespace, destination.Alias, keyID, int32(types.KeyLifeCycleLive))
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		n, _ := res.RowsAffected()
		if n != 1 {
			return TxResult[struct{}]{}, wrapInvariant("migrate_key_namespace affected %d rows, expected 1", n)
		}
		return NoGCResult(struct{}{}), nil
	})
	return err
}

func scopeKindFromTag(tag types.DescriptorTag) types.ScopeKind {
	if tag == types.DescriptorSelinux {
		return types.ScopeSelinux
	}
	return types.ScopeApp
}

func scopeFromDescriptor(d types.KeyDescriptor) (types.Scope, error) {
	switch d.Tag {
	case types.DescriptorApp:
		return types.Scope{Kind: types.ScopeApp, Namespace: d.Namespace}, nil
	case types.DescriptorSelinux:
		return types.Scope{Kind: types.ScopeSelinux, Namespace: d.Namespace}, nil
	default:
		return types.Scope{}, fmt.Errorf("scope must be App or Selinux: %w", types.ErrInvalidArgument)
	}
}

// LoadKeyComponents returns a fully populated KeyEntry for keyID per the
// requested load bits.
func (db *DB) LoadKeyComponents(ctx context.Context, loadBits types.LoadBits, keyID int64) (types.KeyEntry, error) {
	return withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[types.KeyEntry], error) {
		entry, err := txLoadKeyComponents(ctx, tx, loadBits, keyID)
		return NoGCResult(entry), err
	})
}

func txLoadKeyComponents(ctx context.Context, tx *Tx, loadBits types.LoadBits, keyID int64) (types.KeyEntry, error) {
	var entry types.KeyEntry
	var keyType, scopeKind, namespace, state int64
	var alias sql.NullString
	var kmUUID []byte
	err := tx.QueryRowContext(ctx,
		`SELECT id, key_type, scope_kind, namespace, alias, state, km_uuid FROM keyentry WHERE id = ?`, keyID).
		Scan(&entry.ID, &keyType, &scopeKind, &namespace, &alias, &state, &kmUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return entry, fmt.Errorf("key id %d: %w", keyID, types.ErrKeyNotFound)
	}
	if err != nil {
		return entry, err
	}
	if entry.KeyType, err = decodeKeyType(keyType); err != nil {
		return entry, err
	}
	if entry.Scope.Kind, err = decodeScopeKind(scopeKind); err != nil {
		return entry, err
	}
	entry.Scope.Namespace = namespace
	entry.Alias = alias.String
	entry.HasAlias = alias.Valid
	if entry.LifeCycle, err = decodeLifeCycle(state); err != nil {
		return entry, err
	}
	if entry.KmUUID, err = types.NewUUID(kmUUID); err != nil {
		return entry, err
	}

	if loadBits.WantsKeyMaterial() {
		if blob, meta, ok, err := loadCurrentBlob(ctx, tx, keyID, types.SubComponentKeyBlob); err != nil {
			return entry, err
		} else if ok {
			entry.KeyBlob, entry.KeyBlobMeta, entry.HasKeyBlob = blob, meta, true
		}
	}
	if loadBits.WantsPublic() {
		if blob, _, ok, err := loadCurrentBlob(ctx, tx, keyID, types.SubComponentCert); err != nil {
			return entry, err
		} else if ok {
			entry.Cert, entry.HasCert = blob, true
		}
		if blob, _, ok, err := loadCurrentBlob(ctx, tx, keyID, types.SubComponentCertChain); err != nil {
			return entry, err
		} else if ok {
			entry.CertChain, entry.HasCertChain = blob, true
		}
	}

	if entry.Parameters, err = loadKeyParameters(ctx, tx, keyID); err != nil {
		return entry, err
	}
	if entry.Metadata, err = loadKeyMetaData(ctx, tx, keyID); err != nil {
		return entry, err
	}
	return entry, nil
}

func loadCurrentBlob(ctx context.Context, tx *Tx, keyID int64, sub types.SubComponentType) ([]byte, types.BlobMetaData, bool, error) {
	var blobID int64
	var blob []byte
	err := tx.QueryRowContext(ctx,
		`SELECT id, blob FROM blobentry WHERE key_id = ? AND subcomponent = ? AND state = ?`,
		keyID, int32(sub), int32(types.BlobStateCurrent)).Scan(&blobID, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.BlobMetaData{}, false, nil
	}
	if err != nil {
		return nil, types.BlobMetaData{}, false, err
	}
	meta, err := loadBlobMetaData(ctx, tx, blobID)
	if err != nil {
		return nil, types.BlobMetaData{}, false, err
	}
	return blob, meta, true, nil
}

// CheckAndUpdateKeyUsageCount reads the UsageCountLimit parameter and
// decrements it; on the 1->0 transition it also marks the entry
// Unreferenced.
func (db *DB) CheckAndUpdateKeyUsageCount(ctx context.Context, keyID int64) error {
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		var limit int64
		err := tx.QueryRowContext(ctx,
			`SELECT int_value FROM keyparameter WHERE key_id = ? AND tag = ?`,
			keyID, int32(types.ParamUsageCountLimit)).Scan(&limit)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && limit == 0) {
			return TxResult[struct{}]{}, fmt.Errorf("usage count exhausted for key %d: %w", keyID, types.ErrInvalidKeyBlob)
		}
		if err != nil {
			return TxResult[struct{}]{}, err
		}

		newLimit := limit - 1
		if _, err := tx.ExecContext(ctx,
			`UPDATE keyparameter SET int_value = ? WHERE key_id = ? AND tag = ?`,
			newLimit, keyID, int32(types.ParamUsageCountLimit)); err != nil {
			return TxResult[struct{}]{}, err
		}

		needGC := false
		if newLimit == 0 {
			affected, err := txMarkUnreferenced(ctx, tx, keyID)
			if err != nil {
				return TxResult[struct{}]{}, err
			}
			needGC = affected
		}
		return DoGCResult(needGC, struct{}{}), nil
	})
	return err
}

// KeyExists reports whether a Live row matches kind/scope/alias.
func (db *DB) KeyExists(ctx context.Context, kind types.KeyType, scope types.Scope, alias string) (bool, error) {
	return withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[bool], error) {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace = ? AND alias = ? AND state = ?`,
			int32(kind), int32(scope.Kind), scope.Namespace, alias, int32(types.KeyLifeCycleLive)).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return NoGCResult(false), nil
		}
		if err != nil {
			return TxResult[bool]{}, err
		}
		return NoGCResult(true), nil
	})
}

// CountKeys counts Live keys matching a scope.
func (db *DB) CountKeys(ctx context.Context, kind types.KeyType, scope types.Scope) (int64, error) {
	return withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[int64], error) {
		var n int64
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace = ? AND state = ?`,
			int32(kind), int32(scope.Kind), scope.Namespace, int32(types.KeyLifeCycleLive)).Scan(&n)
		return NoGCResult(n), err
	})
}

// LoadKeyDescriptor reconstructs a canonical KeyDescriptor for a raw key
// id.
func (db *DB) LoadKeyDescriptor(ctx context.Context, keyID int64) (types.KeyDescriptor, error) {
	return withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[types.KeyDescriptor], error) {
		var scopeKind, namespace int64
		var alias sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT scope_kind, namespace, alias FROM keyentry WHERE id = ? AND state = ?`,
			keyID, int32(types.KeyLifeCycleLive)).Scan(&scopeKind, &namespace, &alias)
		if errors.Is(err, sql.ErrNoRows) {
			return TxResult[types.KeyDescriptor]{}, fmt.Errorf("key id %d: %w", keyID, types.ErrKeyNotFound)
		}
		if err != nil {
			return TxResult[types.KeyDescriptor]{}, err
		}
		sk, err := decodeScopeKind(scopeKind)
		if err != nil {
			return TxResult[types.KeyDescriptor]{}, err
		}
		tag := types.DescriptorApp
		if sk == types.ScopeSelinux {
			tag = types.DescriptorSelinux
		}
		return NoGCResult(types.KeyDescriptor{Tag: tag, Namespace: namespace, Alias: alias.String, HasAlias: alias.Valid}), nil
	})
}
