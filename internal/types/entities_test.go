package types

import "testing"

func TestNewUUIDRejectsWrongLength(t *testing.T) {
	if _, err := NewUUID(make([]byte, 15)); err == nil {
		t.Fatalf("NewUUID(15 bytes) succeeded, want ErrOutOfRange")
	}
	if _, err := NewUUID(make([]byte, 17)); err == nil {
		t.Fatalf("NewUUID(17 bytes) succeeded, want ErrOutOfRange")
	}
	u, err := NewUUID(make([]byte, 16))
	if err != nil {
		t.Fatalf("NewUUID(16 bytes) failed: %v", err)
	}
	if len(u.Bytes()) != 16 {
		t.Fatalf("UUID.Bytes() length = %d, want 16", len(u.Bytes()))
	}
}

func TestEncryptedByPasswordVsKeyID(t *testing.T) {
	pw := EncryptedByPassword()
	if !pw.IsPassword() {
		t.Fatalf("EncryptedByPassword().IsPassword() = false")
	}
	if _, ok := pw.KeyID(); ok {
		t.Fatalf("EncryptedByPassword().KeyID() ok = true, want false")
	}

	kid := EncryptedByKeyID(42)
	if kid.IsPassword() {
		t.Fatalf("EncryptedByKeyID(42).IsPassword() = true")
	}
	id, ok := kid.KeyID()
	if !ok || id != 42 {
		t.Fatalf("EncryptedByKeyID(42).KeyID() = (%d, %v), want (42, true)", id, ok)
	}
}

func TestLoadBitsWantsPublicImpliedByKeyMaterial(t *testing.T) {
	if !LoadKeyMaterial.WantsPublic() {
		t.Fatalf("LoadKeyMaterial.WantsPublic() = false, want true (material implies public per load_key_components)")
	}
	if LoadNone.WantsPublic() || LoadNone.WantsKeyMaterial() {
		t.Fatalf("LoadNone reports wanting components")
	}
	both := LoadBoth()
	if !both.WantsKeyMaterial() || !both.WantsPublic() {
		t.Fatalf("LoadBoth() does not want both components")
	}
}
