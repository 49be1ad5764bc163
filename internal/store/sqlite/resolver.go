package sqlite

// Access resolver: given a caller-supplied KeyDescriptor, produces
// (key-id, canonical-descriptor, optional-grant-rights). This must run
// before any caller-supplied permission check.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veilkey/veilkeydb/internal/keylock"
	"github.com/veilkey/veilkeydb/internal/types"
)

// Resolve implements a two-phase locking protocol: it resolves
// descriptor to a key id in a read transaction, then acquires that id's
// lock. The try-acquire happens after that first transaction has
// committed, not inside it. If the try-acquire fails (someone else holds
// the guard), it blocks on the lock outside any transaction and
// re-resolves by the discovered id in a fresh
// transaction without re-running the caller's permission check: the
// permission decision was already made against the first resolution's
// canonical descriptor and rights, which the caller must reuse.
//
// check is invoked with the canonical descriptor and grant rights exactly
// once, inside the first transaction, before any lock is taken. Its error
// is propagated unchanged.
func (db *DB) Resolve(ctx context.Context, descriptor types.KeyDescriptor, kind types.KeyType, callerUID int64, check func(types.KeyDescriptor, *types.AccessRights) error) (*keylock.Guard, types.ResolvedAccess, error) {
	access, err := withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[types.ResolvedAccess], error) {
		ra, err := txResolve(ctx, tx, descriptor, kind, callerUID)
		if err != nil {
			return TxResult[types.ResolvedAccess]{}, err
		}
		if err := check(ra.Descriptor, ra.GrantRights); err != nil {
			return TxResult[types.ResolvedAccess]{}, err
		}
		return NoGCResult(ra), nil
	})
	if err != nil {
		return nil, types.ResolvedAccess{}, err
	}

	if guard := db.locks.TryAcquire(access.KeyID); guard != nil {
		return guard, access, nil
	}

	// Someone else holds the guard; block for it outside any open
	// transaction. Holding a blocking lock inside an open transaction
	// risks deadlock against the writer that owns the lock and is itself
	// waiting on the database.
	guard := db.locks.Acquire(access.KeyID)

	reresolved, err := withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[types.ResolvedAccess], error) {
		ra, err := txResolveByID(ctx, tx, access.KeyID, descriptor, kind, callerUID)
		return NoGCResult(ra), err
	})
	if err != nil {
		guard.Release()
		return nil, types.ResolvedAccess{}, err
	}
	return guard, reresolved, nil
}

// txResolve dispatches on descriptor.Tag.
func txResolve(ctx context.Context, tx *Tx, descriptor types.KeyDescriptor, kind types.KeyType, callerUID int64) (types.ResolvedAccess, error) {
	switch descriptor.Tag {
	case types.DescriptorApp:
		return resolveApp(ctx, tx, descriptor, kind, callerUID)
	case types.DescriptorSelinux:
		return resolveSelinux(ctx, tx, descriptor, kind)
	case types.DescriptorGrant:
		return resolveGrant(ctx, tx, descriptor, callerUID)
	case types.DescriptorKeyID:
		return resolveKeyID(ctx, tx, descriptor, callerUID)
	default:
		return types.ResolvedAccess{}, fmt.Errorf("descriptor tag %d: %w", descriptor.Tag, types.ErrInvalidArgument)
	}
}

func resolveApp(ctx context.Context, tx *Tx, descriptor types.KeyDescriptor, kind types.KeyType, callerUID int64) (types.ResolvedAccess, error) {
	descriptor.Namespace = callerUID
	id, err := lookupLive(ctx, tx, kind, types.ScopeApp, callerUID, descriptor.Alias, descriptor.HasAlias)
	if err != nil {
		return types.ResolvedAccess{}, err
	}
	return types.ResolvedAccess{KeyID: id, Descriptor: descriptor}, nil
}

func resolveSelinux(ctx context.Context, tx *Tx, descriptor types.KeyDescriptor, kind types.KeyType) (types.ResolvedAccess, error) {
	id, err := lookupLive(ctx, tx, kind, types.ScopeSelinux, descriptor.Namespace, descriptor.Alias, descriptor.HasAlias)
	if err != nil {
		return types.ResolvedAccess{}, err
	}
	return types.ResolvedAccess{KeyID: id, Descriptor: descriptor}, nil
}

func resolveGrant(ctx context.Context, tx *Tx, descriptor types.KeyDescriptor, callerUID int64) (types.ResolvedAccess, error) {
	grantID := descriptor.Namespace
	var keyID int64
	var rights int64
	err := tx.QueryRowContext(ctx,
		`SELECT g.key_id, g.access_vector FROM grant_ g
		 JOIN keyentry k ON k.id = g.key_id
		 WHERE g.id = ? AND g.grantee = ? AND k.state = ?`,
		grantID, callerUID, int32(types.KeyLifeCycleLive)).Scan(&keyID, &rights)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResolvedAccess{}, fmt.Errorf("grant %d for uid %d: %w", grantID, callerUID, types.ErrKeyNotFound)
	}
	if err != nil {
		return types.ResolvedAccess{}, err
	}
	// A Grant descriptor never carries RightGrant, whatever the stored
	// vector holds: a grant cannot be re-delegated.
	rightsVal := types.AccessRights(rights) &^ types.RightGrant
	return types.ResolvedAccess{
		KeyID:       keyID,
		Descriptor:  types.KeyDescriptor{Tag: types.DescriptorGrant, Namespace: grantID},
		GrantRights: &rightsVal,
	}, nil
}

func resolveKeyID(ctx context.Context, tx *Tx, descriptor types.KeyDescriptor, callerUID int64) (types.ResolvedAccess, error) {
	return txResolveByID(ctx, tx, descriptor.Namespace, descriptor, types.KeyTypeClient, callerUID)
}

// txResolveByID re-derives the canonical descriptor and rights for a
// known key id. Used both by the KeyId descriptor tag and by the
// re-resolution step of the two-phase lock protocol: in the latter case
// the alias may have been rebound since the first resolution, so this
// always re-reads the owning (scope, namespace).
func txResolveByID(ctx context.Context, tx *Tx, keyID int64, original types.KeyDescriptor, kind types.KeyType, callerUID int64) (types.ResolvedAccess, error) {
	var scopeKind, namespace int64
	var alias sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT scope_kind, namespace, alias FROM keyentry WHERE id = ? AND state = ?`,
		keyID, int32(types.KeyLifeCycleLive)).Scan(&scopeKind, &namespace, &alias)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResolvedAccess{}, fmt.Errorf("key id %d: %w", keyID, types.ErrKeyNotFound)
	}
	if err != nil {
		return types.ResolvedAccess{}, err
	}
	sk, err := decodeScopeKind(scopeKind)
	if err != nil {
		return types.ResolvedAccess{}, err
	}

	tag := types.DescriptorApp
	if sk == types.ScopeSelinux {
		tag = types.DescriptorSelinux
	}
	canonical := types.KeyDescriptor{Tag: tag, Namespace: namespace, Alias: alias.String, HasAlias: alias.Valid}

	if original.Tag == types.DescriptorKeyID && sk == types.ScopeApp && namespace != callerUID {
		// Owner is not the caller: attach a grant's rights, if any, for
		// this caller on this key id.
		var rights int64
		err := tx.QueryRowContext(ctx,
			`SELECT access_vector FROM grant_ WHERE key_id = ? AND grantee = ?`, keyID, callerUID).Scan(&rights)
		if err == nil {
			rightsVal := types.AccessRights(rights)
			return types.ResolvedAccess{KeyID: keyID, Descriptor: canonical, GrantRights: &rightsVal}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return types.ResolvedAccess{}, err
		}
	}
	return types.ResolvedAccess{KeyID: keyID, Descriptor: canonical}, nil
}

func lookupLive(ctx context.Context, tx *Tx, kind types.KeyType, scopeKind types.ScopeKind, namespace int64, alias string, hasAlias bool) (int64, error) {
	if !hasAlias {
		return 0, fmt.Errorf("descriptor missing alias: %w", types.ErrInvalidArgument)
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM keyentry WHERE key_type = ? AND scope_kind = ? AND namespace = ? AND alias = ? AND state = ?`,
		int32(kind), int32(scopeKind), namespace, alias, int32(types.KeyLifeCycleLive)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("alias %q: %w", alias, types.ErrKeyNotFound)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
