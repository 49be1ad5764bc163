package sqlite

import (
	"context"
	"sort"
	"testing"

	"github.com/veilkey/veilkeydb/internal/types"
)

func TestUnbindKeysForNamespace(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 42}

	g, keyID, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x44))
	if err != nil {
		t.Fatalf("CreateKeyEntry: %v", err)
	}
	if err := db.RebindAlias(ctx, g, types.KeyTypeClient, scope, "k"); err != nil {
		t.Fatalf("RebindAlias: %v", err)
	}
	g.Release()

	if err := db.UnbindKeysForNamespace(ctx, types.ScopeApp, 42); err != nil {
		t.Fatalf("UnbindKeysForNamespace: %v", err)
	}

	if _, err := db.LoadKeyComponents(ctx, types.LoadNone, keyID); err == nil {
		t.Fatalf("LoadKeyComponents(keyID) succeeded after namespace unbind, want ErrKeyNotFound")
	}
}

func TestUnbindAuthBoundKeysForUser(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	uid := int64(3*UIDOffset + 7)
	scope := types.Scope{Kind: types.ScopeApp, Namespace: uid}

	boundGuard, boundID, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x55))
	if err != nil {
		t.Fatalf("CreateKeyEntry(bound): %v", err)
	}
	if err := db.RebindAlias(ctx, boundGuard, types.KeyTypeClient, scope, "bound"); err != nil {
		t.Fatalf("RebindAlias(bound): %v", err)
	}
	boundGuard.Release()
	seedUsageParam(t, db, boundID, types.KeyParameter{Tag: types.ParamUserSecureID, IntValue: 999})

	plainGuard, plainID, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x66))
	if err != nil {
		t.Fatalf("CreateKeyEntry(plain): %v", err)
	}
	if err := db.RebindAlias(ctx, plainGuard, types.KeyTypeClient, scope, "plain"); err != nil {
		t.Fatalf("RebindAlias(plain): %v", err)
	}
	plainGuard.Release()

	if err := db.UnbindAuthBoundKeysForUser(ctx, 3); err != nil {
		t.Fatalf("UnbindAuthBoundKeysForUser: %v", err)
	}

	boundEntry, err := db.LoadKeyComponents(ctx, types.LoadNone, boundID)
	if err != nil {
		t.Fatalf("LoadKeyComponents(bound): %v", err)
	}
	if boundEntry.LifeCycle != types.KeyLifeCycleUnreferenced {
		t.Fatalf("bound key lifecycle = %v, want Unreferenced", boundEntry.LifeCycle)
	}

	plainEntry, err := db.LoadKeyComponents(ctx, types.LoadNone, plainID)
	if err != nil {
		t.Fatalf("LoadKeyComponents(plain): %v", err)
	}
	if plainEntry.LifeCycle != types.KeyLifeCycleLive {
		t.Fatalf("plain key lifecycle = %v, want still Live", plainEntry.LifeCycle)
	}
}

func TestGetAppUIDsAffectedBySID(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	userID := int64(5)
	uidA := userID*UIDOffset + 1
	uidB := userID*UIDOffset + 2

	gA, keyA, err := db.CreateKeyEntry(ctx, types.Scope{Kind: types.ScopeApp, Namespace: uidA}, types.KeyTypeClient, testUUID(0x77))
	if err != nil {
		t.Fatalf("CreateKeyEntry(A): %v", err)
	}
	if err := db.RebindAlias(ctx, gA, types.KeyTypeClient, types.Scope{Kind: types.ScopeApp, Namespace: uidA}, "a"); err != nil {
		t.Fatalf("RebindAlias(A): %v", err)
	}
	gA.Release()
	seedUsageParam(t, db, keyA, types.KeyParameter{Tag: types.ParamUserSecureID, IntValue: 42})

	gB, keyB, err := db.CreateKeyEntry(ctx, types.Scope{Kind: types.ScopeApp, Namespace: uidB}, types.KeyTypeClient, testUUID(0x88))
	if err != nil {
		t.Fatalf("CreateKeyEntry(B): %v", err)
	}
	if err := db.RebindAlias(ctx, gB, types.KeyTypeClient, types.Scope{Kind: types.ScopeApp, Namespace: uidB}, "b"); err != nil {
		t.Fatalf("RebindAlias(B): %v", err)
	}
	gB.Release()
	seedUsageParam(t, db, keyB, types.KeyParameter{Tag: types.ParamUserSecureID, IntValue: 7})

	uids, err := db.GetAppUIDsAffectedBySID(ctx, userID, 42)
	if err != nil {
		t.Fatalf("GetAppUIDsAffectedBySID: %v", err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if len(uids) != 1 || uids[0] != uidA {
		t.Fatalf("GetAppUIDsAffectedBySID = %v, want [%d]", uids, uidA)
	}
}

func seedUsageParam(t *testing.T, db *DB, keyID int64, param types.KeyParameter) {
	t.Helper()
	ctx := context.Background()
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		return NoGCResult(struct{}{}), insertKeyParameters(ctx, tx, keyID, []types.KeyParameter{param})
	})
	if err != nil {
		t.Fatalf("seedUsageParam: %v", err)
	}
}
