package types

import "testing"

// TestTagAssignments pins the stable on-disk integer assignment: these
// values are part of the external contract and must never change.
func TestTagAssignments(t *testing.T) {
	cases := []struct {
		name string
		got  int32
		want int32
	}{
		{"KeyTypeClient", int32(KeyTypeClient), 0},
		{"KeyTypeSuper", int32(KeyTypeSuper), 1},
		{"KeyLifeCycleExisting", int32(KeyLifeCycleExisting), 0},
		{"KeyLifeCycleLive", int32(KeyLifeCycleLive), 1},
		{"KeyLifeCycleUnreferenced", int32(KeyLifeCycleUnreferenced), 2},
		{"BlobStateCurrent", int32(BlobStateCurrent), 0},
		{"BlobStateSuperseded", int32(BlobStateSuperseded), 1},
		{"BlobStateOrphaned", int32(BlobStateOrphaned), 2},
		{"SubComponentKeyBlob", int32(SubComponentKeyBlob), 0},
		{"SubComponentCert", int32(SubComponentCert), 1},
		{"SubComponentCertChain", int32(SubComponentCertChain), 2},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestValidRejectsOutOfRange(t *testing.T) {
	if KeyType(2).Valid() {
		t.Fatalf("KeyType(2).Valid() = true, want false")
	}
	if KeyLifeCycle(3).Valid() {
		t.Fatalf("KeyLifeCycle(3).Valid() = true, want false")
	}
	if BlobState(3).Valid() {
		t.Fatalf("BlobState(3).Valid() = true, want false")
	}
	if SubComponentType(3).Valid() {
		t.Fatalf("SubComponentType(3).Valid() = true, want false")
	}
	if MetaTag(-1).Valid() {
		t.Fatalf("MetaTag(-1).Valid() = true, want false")
	}
	if ParamTag(-1).Valid() {
		t.Fatalf("ParamTag(-1).Valid() = true, want false")
	}
}
