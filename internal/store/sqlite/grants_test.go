package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/veilkey/veilkeydb/internal/types"
)

// TestGrantLifecycle exercises granting, updating, and resolving through
// a grant end to end.
func TestGrantLifecycle(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 15}

	g, _, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x11))
	if err != nil {
		t.Fatalf("CreateKeyEntry: %v", err)
	}
	if err := db.RebindAlias(ctx, g, types.KeyTypeClient, scope, "k"); err != nil {
		t.Fatalf("RebindAlias: %v", err)
	}
	g.Release()

	descK := types.KeyDescriptor{Tag: types.DescriptorApp, Alias: "k", HasAlias: true}
	rights1 := types.RightUse | types.RightGetInfo
	grantDesc, err := db.Grant(ctx, descK, 15, 12, rights1, allowCheck)
	if err != nil {
		t.Fatalf("Grant(initial): %v", err)
	}
	if grantDesc.Tag != types.DescriptorGrant {
		t.Fatalf("grant descriptor tag = %v, want Grant", grantDesc.Tag)
	}
	g1 := grantDesc.Namespace

	grantDesc2, err := db.Grant(ctx, descK, 15, 12, types.RightUse, allowCheck)
	if err != nil {
		t.Fatalf("Grant(update): %v", err)
	}
	if grantDesc2.Namespace != g1 {
		t.Fatalf("grant id changed across update: %d != %d", grantDesc2.Namespace, g1)
	}

	descGrant := types.KeyDescriptor{Tag: types.DescriptorGrant, Namespace: g1}
	var seenRights *types.AccessRights
	check := func(d types.KeyDescriptor, rights *types.AccessRights) error {
		seenRights = rights
		return nil
	}
	entry, err := db.LoadKeyEntry(ctx, descGrant, types.KeyTypeClient, 12, types.LoadNone, check)
	if err != nil {
		t.Fatalf("LoadKeyEntry(grant): %v", err)
	}
	_ = entry
	if seenRights == nil || *seenRights != types.RightUse {
		t.Fatalf("rights passed to check = %v, want RightUse only", seenRights)
	}

	if err := db.UnbindKeysForUser(ctx, 0); err != nil {
		t.Fatalf("UnbindKeysForUser(0): %v", err)
	}

	_, _, err = db.Resolve(ctx, descGrant, types.KeyTypeClient, 12, allowCheck)
	if !errors.Is(err, types.ErrKeyNotFound) {
		t.Fatalf("Resolve(grant) after UnbindKeysForUser = %v, want ErrKeyNotFound", err)
	}
}

// TestGrantingAGrantDescriptorCannotCarryGrantRight verifies that
// resolving a Grant descriptor never yields a rights vector containing
// RightGrant, so a permission check gating on RightGrant always denies
// chaining through a grant: impossible by construction.
func TestGrantingAGrantDescriptorCannotCarryGrantRight(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 1}

	g, _, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x22))
	if err != nil {
		t.Fatalf("CreateKeyEntry: %v", err)
	}
	if err := db.RebindAlias(ctx, g, types.KeyTypeClient, scope, "k"); err != nil {
		t.Fatalf("RebindAlias: %v", err)
	}
	g.Release()

	descK := types.KeyDescriptor{Tag: types.DescriptorApp, Alias: "k", HasAlias: true}
	grantDesc, err := db.Grant(ctx, descK, 1, 2, types.RightUse|types.RightGrant, allowCheck)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	descGrant := types.KeyDescriptor{Tag: types.DescriptorGrant, Namespace: grantDesc.Namespace}
	denyIfGrantRight := func(d types.KeyDescriptor, rights *types.AccessRights) error {
		if rights != nil && rights.Has(types.RightGrant) {
			t.Fatalf("resolved grant rights carried RightGrant: %v", *rights)
		}
		return nil
	}
	if _, _, err := db.Resolve(ctx, descGrant, types.KeyTypeClient, 2, denyIfGrantRight); err != nil {
		t.Fatalf("Resolve(grant): %v", err)
	}
}

func TestUngrant(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 5}

	g, _, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x33))
	if err != nil {
		t.Fatalf("CreateKeyEntry: %v", err)
	}
	if err := db.RebindAlias(ctx, g, types.KeyTypeClient, scope, "k"); err != nil {
		t.Fatalf("RebindAlias: %v", err)
	}
	g.Release()

	descK := types.KeyDescriptor{Tag: types.DescriptorApp, Alias: "k", HasAlias: true}
	grantDesc, err := db.Grant(ctx, descK, 5, 9, types.RightUse, allowCheck)
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := db.Ungrant(ctx, descK, 5, 9, allowCheck); err != nil {
		t.Fatalf("Ungrant: %v", err)
	}

	descGrant := types.KeyDescriptor{Tag: types.DescriptorGrant, Namespace: grantDesc.Namespace}
	_, _, err = db.Resolve(ctx, descGrant, types.KeyTypeClient, 9, allowCheck)
	if !errors.Is(err, types.ErrKeyNotFound) {
		t.Fatalf("Resolve after Ungrant = %v, want ErrKeyNotFound", err)
	}
}
