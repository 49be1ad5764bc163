package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/veilkey/veilkeydb/internal/types"
)

// TestTwoPhaseLock verifies that a guard held by one caller forces a
// concurrent Resolve, after its first transaction, to block on the
// lock and re-resolve in a fresh one once the guard is released, still
// returning the right key.
func TestTwoPhaseLock(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 9}

	g, keyID, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, testUUID(0x99))
	if err != nil {
		t.Fatalf("CreateKeyEntry: %v", err)
	}
	if err := db.RebindAlias(ctx, g, types.KeyTypeClient, scope, "alpha"); err != nil {
		t.Fatalf("RebindAlias: %v", err)
	}
	g.Release()

	heldGuard := db.locks.Acquire(keyID)

	done := make(chan types.ResolvedAccess, 1)
	errc := make(chan error, 1)
	go func() {
		desc := types.KeyDescriptor{Tag: types.DescriptorApp, Alias: "alpha", HasAlias: true}
		guard, access, err := db.Resolve(context.Background(), desc, types.KeyTypeClient, 9, allowCheck)
		if err != nil {
			errc <- err
			return
		}
		guard.Release()
		done <- access
	}()

	select {
	case <-done:
		t.Fatalf("Resolve returned before the held guard was released")
	case err := <-errc:
		t.Fatalf("Resolve failed before release: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	heldGuard.Release()

	select {
	case access := <-done:
		if access.KeyID != keyID {
			t.Fatalf("Resolve after release returned key %d, want %d", access.KeyID, keyID)
		}
	case err := <-errc:
		t.Fatalf("Resolve after release failed: %v", err)
	case <-time.After(time.Second):
		t.Fatalf("Resolve did not complete within 1s of releasing the guard")
	}
}
