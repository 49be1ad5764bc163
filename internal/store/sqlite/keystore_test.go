package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/veilkey/veilkeydb/internal/types"
)

// TestCreateLoadRebindDelete creates two client keys under the same
// alias, observes the second rebind displace the first, loads through
// the alias, then unbinds and confirms blobs are Orphaned.
func TestCreateLoadRebindDelete(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 100}
	u := testUUID(0xAB)

	guard1, k1, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, u)
	if err != nil {
		t.Fatalf("CreateKeyEntry(k1): %v", err)
	}
	if err := db.SetBlob(ctx, guard1, types.SubComponentKeyBlob, []byte("blob-v1"), types.BlobMetaData{KmUUID: &u}); err != nil {
		t.Fatalf("SetBlob(k1, KeyBlob): %v", err)
	}
	if err := db.SetBlob(ctx, guard1, types.SubComponentCert, []byte("cert"), types.BlobMetaData{}); err != nil {
		t.Fatalf("SetBlob(k1, Cert): %v", err)
	}
	if err := db.SetBlob(ctx, guard1, types.SubComponentCertChain, []byte("chain"), types.BlobMetaData{}); err != nil {
		t.Fatalf("SetBlob(k1, CertChain): %v", err)
	}
	if err := db.RebindAlias(ctx, guard1, types.KeyTypeClient, scope, "alpha"); err != nil {
		t.Fatalf("RebindAlias(k1, alpha): %v", err)
	}
	guard1.Release()

	guard2, k2, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, u)
	if err != nil {
		t.Fatalf("CreateKeyEntry(k2): %v", err)
	}
	if err := db.SetBlob(ctx, guard2, types.SubComponentKeyBlob, []byte("blob-v2"), types.BlobMetaData{KmUUID: &u}); err != nil {
		t.Fatalf("SetBlob(k2, KeyBlob): %v", err)
	}
	if err := db.RebindAlias(ctx, guard2, types.KeyTypeClient, scope, "alpha"); err != nil {
		t.Fatalf("RebindAlias(k2, alpha): %v", err)
	}
	guard2.Release()

	descAlpha := types.KeyDescriptor{Tag: types.DescriptorApp, Alias: "alpha", HasAlias: true}
	entry, err := db.LoadKeyEntry(ctx, descAlpha, types.KeyTypeClient, 100, types.LoadBoth(), allowCheck)
	if err != nil {
		t.Fatalf("LoadKeyEntry(alpha): %v", err)
	}
	if entry.ID != k2 {
		t.Fatalf("LoadKeyEntry(alpha) returned id %d, want %d", entry.ID, k2)
	}
	if string(entry.KeyBlob) != "blob-v2" {
		t.Fatalf("LoadKeyEntry(alpha) key blob = %q, want blob-v2", entry.KeyBlob)
	}

	if err := db.UnbindKey(ctx, descAlpha, types.KeyTypeClient, 100, allowCheck); err != nil {
		t.Fatalf("UnbindKey(alpha): %v", err)
	}

	k2Entry, err := db.LoadKeyComponents(ctx, types.LoadNone, k2)
	if err != nil {
		t.Fatalf("LoadKeyComponents(k2) after unbind: %v", err)
	}
	if k2Entry.LifeCycle != types.KeyLifeCycleUnreferenced {
		t.Fatalf("k2 lifecycle = %v, want Unreferenced", k2Entry.LifeCycle)
	}

	blobStates := queryBlobStates(t, db, k2)
	for sub, state := range blobStates {
		if state != types.BlobStateOrphaned {
			t.Fatalf("k2 blob %v state = %v, want Orphaned", sub, state)
		}
	}

	_, _, err = db.Resolve(ctx, descAlpha, types.KeyTypeClient, 100, allowCheck)
	if !errors.Is(err, types.ErrKeyNotFound) {
		t.Fatalf("Resolve(alpha) after unbind = %v, want ErrKeyNotFound", err)
	}
}

func queryBlobStates(t *testing.T, db *DB, keyID int64) map[types.SubComponentType]types.BlobState {
	t.Helper()
	ctx := context.Background()
	out := make(map[types.SubComponentType]types.BlobState)
	_, err := withTransaction(ctx, db, txDeferred, func(tx *Tx) (TxResult[struct{}], error) {
		rows, err := tx.QueryContext(ctx, `SELECT subcomponent, state FROM blobentry WHERE key_id = ?`, keyID)
		if err != nil {
			return TxResult[struct{}]{}, err
		}
		defer rows.Close()
		for rows.Next() {
			var sub, state int64
			if err := rows.Scan(&sub, &state); err != nil {
				return TxResult[struct{}]{}, err
			}
			out[types.SubComponentType(sub)] = types.BlobState(state)
		}
		return NoGCResult(struct{}{}), rows.Err()
	})
	if err != nil {
		t.Fatalf("queryBlobStates: %v", err)
	}
	return out
}

// TestCheckAndUpdateKeyUsageCountExhausted verifies that a key's last
// allowed use both succeeds and marks the key unreferenced.
func TestCheckAndUpdateKeyUsageCountExhausted(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 7}
	u := testUUID(0x01)

	guard, keyID, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, u)
	if err != nil {
		t.Fatalf("CreateKeyEntry: %v", err)
	}
	defer guard.Release()

	_, err = withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		if err := insertKeyParameters(ctx, tx, keyID, []types.KeyParameter{
			{Tag: types.ParamUsageCountLimit, IntValue: 1},
		}); err != nil {
			return TxResult[struct{}]{}, err
		}
		return NoGCResult(struct{}{}), nil
	})
	if err != nil {
		t.Fatalf("seeding usage count parameter: %v", err)
	}

	if err := db.CheckAndUpdateKeyUsageCount(ctx, keyID); err != nil {
		t.Fatalf("first CheckAndUpdateKeyUsageCount: %v", err)
	}
	entry, err := db.LoadKeyComponents(ctx, types.LoadNone, keyID)
	if err != nil {
		t.Fatalf("LoadKeyComponents: %v", err)
	}
	if entry.LifeCycle != types.KeyLifeCycleUnreferenced {
		t.Fatalf("lifecycle after 1->0 transition = %v, want Unreferenced", entry.LifeCycle)
	}

	err = db.CheckAndUpdateKeyUsageCount(ctx, keyID)
	if !errors.Is(err, types.ErrInvalidKeyBlob) {
		t.Fatalf("second CheckAndUpdateKeyUsageCount = %v, want ErrInvalidKeyBlob", err)
	}
}

// TestCreateKeyEntryRequiresValidScope rejects any scope kind outside App/Selinux.
func TestCreateKeyEntryRequiresValidScope(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	_, _, err := db.CreateKeyEntry(ctx, types.Scope{Kind: types.ScopeKind(99), Namespace: 1}, types.KeyTypeClient, testUUID(0x02))
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("CreateKeyEntry(invalid scope) = %v, want ErrInvalidArgument", err)
	}
}
