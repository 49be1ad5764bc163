package sqlite

import (
	"context"
	"testing"

	"github.com/veilkey/veilkeydb/internal/keylock"
	"github.com/veilkey/veilkeydb/internal/types"
)

// TestHandleNextSupersededBlobs verifies that, once a key has been
// rebound away and unbound, the GC interface surfaces both superseded
// and orphaned key blobs, and confirming their ids removes them for
// good along with the orphaned keyentry rows and non-current cert rows.
func TestHandleNextSupersededBlobs(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	scope := types.Scope{Kind: types.ScopeApp, Namespace: 100}
	u := testUUID(0xCD)

	g1, k1, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, u)
	if err != nil {
		t.Fatalf("CreateKeyEntry(k1): %v", err)
	}
	mustSetBlob(t, db, g1, types.SubComponentKeyBlob, []byte("blob-v1"))
	mustSetBlob(t, db, g1, types.SubComponentCert, []byte("cert"))
	mustSetBlob(t, db, g1, types.SubComponentCertChain, []byte("chain"))
	if err := db.RebindAlias(ctx, g1, types.KeyTypeClient, scope, "alpha"); err != nil {
		t.Fatalf("RebindAlias(k1): %v", err)
	}
	g1.Release()

	g2, k2, err := db.CreateKeyEntry(ctx, scope, types.KeyTypeClient, u)
	if err != nil {
		t.Fatalf("CreateKeyEntry(k2): %v", err)
	}
	mustSetBlob(t, db, g2, types.SubComponentKeyBlob, []byte("blob-v2"))
	if err := db.RebindAlias(ctx, g2, types.KeyTypeClient, scope, "alpha"); err != nil {
		t.Fatalf("RebindAlias(k2): %v", err)
	}
	g2.Release()

	descAlpha := types.KeyDescriptor{Tag: types.DescriptorApp, Alias: "alpha", HasAlias: true}
	if err := db.UnbindKey(ctx, descAlpha, types.KeyTypeClient, 100, allowCheck); err != nil {
		t.Fatalf("UnbindKey: %v", err)
	}

	batch, err := db.HandleNextSupersededBlobs(ctx, nil, 20)
	if err != nil {
		t.Fatalf("HandleNextSupersededBlobs(first): %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("first batch has %d key blobs, want 2", len(batch))
	}
	var confirmIDs []int64
	seenBlobs := make(map[string]bool)
	for _, b := range batch {
		confirmIDs = append(confirmIDs, b.BlobID)
		seenBlobs[string(b.Blob)] = true
	}
	if !seenBlobs["blob-v1"] || !seenBlobs["blob-v2"] {
		t.Fatalf("batch missing expected key blobs: %v", seenBlobs)
	}

	second, err := db.HandleNextSupersededBlobs(ctx, confirmIDs, 20)
	if err != nil {
		t.Fatalf("HandleNextSupersededBlobs(confirm): %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("second batch has %d entries, want 0", len(second))
	}

	stats, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.KeyEntries != 0 {
		t.Fatalf("KeyEntries after GC = %d, want 0 (k1=%d k2=%d both gone)", stats.KeyEntries, k1, k2)
	}
	if stats.BlobEntries != 0 {
		t.Fatalf("BlobEntries after GC = %d, want 0", stats.BlobEntries)
	}
}

func mustSetBlob(t *testing.T, db *DB, guard *keylock.Guard, sub types.SubComponentType, blob []byte) {
	t.Helper()
	if err := db.SetBlob(context.Background(), guard, sub, blob, types.BlobMetaData{}); err != nil {
		t.Fatalf("SetBlob(%v): %v", sub, err)
	}
}
