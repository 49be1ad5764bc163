package sqlite

// Test tooling: a newTestStore(t) helper giving each test a fresh
// on-disk database under t.TempDir(), closed automatically on cleanup.

import (
	"testing"

	"github.com/veilkey/veilkeydb/internal/types"
)

func newTestStore(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	})
	return db
}

func testUUID(b byte) types.UUID {
	var u types.UUID
	for i := range u {
		u[i] = b
	}
	return u
}

func allowCheck(types.KeyDescriptor, *types.AccessRights) error { return nil }
