package types

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// UnassignedKeyID is the sentinel owner id for a blob row that has no
// current KeyEntry: id generation must exclude it, and all joins treat
// it as "no owner".
const UnassignedKeyID int64 = -1

// CertOnlyUUID is the reserved 16-byte backend-instance UUID denoting a
// certificate-only entry with no hardware-backed key material.
var CertOnlyUUID = UUID{}

// UUID is a 16-byte opaque backend-instance identifier.
type UUID [16]byte

// NewUUID validates a byte slice is exactly 16 bytes; other lengths
// decode as ErrOutOfRange.
func NewUUID(b []byte) (UUID, error) {
	var u UUID
	if len(b) != 16 {
		return u, fmt.Errorf("uuid must be 16 bytes, got %d: %w", len(b), ErrOutOfRange)
	}
	copy(u[:], b)
	return u, nil
}

func (u UUID) Bytes() []byte { return u[:] }

// NewRandomUUID generates a fresh backend-instance UUID for a key being
// created, distinct from CertOnlyUUID.
func NewRandomUUID() UUID {
	var u UUID
	copy(u[:], uuid.New()[:])
	return u
}

// EncryptedBy discriminates a blob's wrapping key: a user password, or
// another key id<->integer n).
type EncryptedBy struct {
	byPassword bool
	keyID      int64
}

func EncryptedByPassword() EncryptedBy        { return EncryptedBy{byPassword: true} }
func EncryptedByKeyID(id int64) EncryptedBy   { return EncryptedBy{keyID: id} }
func (e EncryptedBy) IsPassword() bool        { return e.byPassword }
func (e EncryptedBy) KeyID() (int64, bool)    { return e.keyID, !e.byPassword }

// DateTime is epoch milliseconds as a signed 64-bit integer.
type DateTime int64

// Now returns the current wall-clock time as a DateTime.
func Now() DateTime { return DateTime(time.Now().UnixMilli()) }

// FromTime converts a time.Time to a DateTime, checked for overflow.
func FromTime(t time.Time) (DateTime, error) {
	if t.Before(time.UnixMilli(math.MinInt64)) || t.After(time.UnixMilli(math.MaxInt64)) {
		return 0, fmt.Errorf("time %v overflows epoch milliseconds: %w", t, ErrSystemError)
	}
	ms := t.UnixMilli()
	return DateTime(ms), nil
}

// ToTime converts a DateTime back to a time.Time.
func (d DateTime) ToTime() time.Time { return time.UnixMilli(int64(d)) }

func (d DateTime) MillisEpoch() int64 { return int64(d) }

// KeyEntry is an owned, caller-facing copy of a key row plus whichever
// components were loaded.
type KeyEntry struct {
	ID          int64
	KeyType     KeyType
	Scope       Scope
	Alias       string
	HasAlias    bool
	LifeCycle   KeyLifeCycle
	KmUUID      UUID

	KeyBlob      []byte
	KeyBlobMeta  BlobMetaData
	HasKeyBlob   bool
	Cert         []byte
	HasCert      bool
	CertChain    []byte
	HasCertChain bool

	Parameters []KeyParameter
	Metadata   KeyMetaData
}

// PureCert reports whether this entry carries certificate material only,
// with no hardware-backed key blob.
func (k *KeyEntry) PureCert() bool { return !k.HasKeyBlob }

// LoadBits selects which components load_key_components populates.
type LoadBits uint32

const (
	LoadNone LoadBits = 0
	LoadKeyMaterial LoadBits = 1 << iota
	LoadPublicOnly
)

func LoadBoth() LoadBits { return LoadKeyMaterial | LoadPublicOnly }
func (b LoadBits) WantsKeyMaterial() bool { return b&LoadKeyMaterial != 0 }
func (b LoadBits) WantsPublic() bool      { return b&LoadPublicOnly != 0 || b&LoadKeyMaterial != 0 }

// BlobEntry is a single physical blob row.
type BlobEntry struct {
	ID            int64
	SubComponent  SubComponentType
	KeyID         int64 // UnassignedKeyID if orphaned at insert time (set_deleted_blob)
	Blob          []byte
	State         BlobState
}

// BlobMetaData is the set of (tag -> value) rows attached to one blob.
type BlobMetaData struct {
	EncryptedBy  *EncryptedBy
	Salt         []byte
	IV           []byte
	AEADTag      []byte
	KmUUID       *UUID
	PublicKey    []byte
	MaxBootLevel *int64
}

func (m BlobMetaData) HasMaxBootLevel() bool { return m.MaxBootLevel != nil }

// KeyParameter is one (tag, value, security-level) row for a key. Tags and
// values are drawn from the closed ParamTag enumeration; only
// UsageCountLimit is mutated in place post-insert.
type KeyParameter struct {
	KeyID         int64
	Tag           ParamTag
	IntValue      int64
	BytesValue    []byte
	HasBytes      bool
	SecurityLevel int32
}

// KeyMetaData is the set of (tag -> value) rows for a key.
type KeyMetaData struct {
	CreationDate             *DateTime
	AttestationChallenge     []byte
	AttestationApplicationID []byte
	SidecarECDHPublicKey     []byte
}

// Grant is a capability record authorizing a principal other than the
// owner to exercise a subset of rights on a key.
type Grant struct {
	ID        int64
	Grantee   int64
	KeyID     int64
	AccessVec AccessRights
}

// KeyDescriptor is the in-memory, caller-facing locator. Only
// the fields relevant to Tag are meaningful.
type KeyDescriptor struct {
	Tag       DescriptorTag
	Namespace int64
	Alias     string
	HasAlias  bool
	BlobBytes []byte
}

// ResolvedAccess is the result of resolving a caller-supplied locator:
// the numeric key id, the canonical descriptor to hand to the
// permission callback, and an optional grant-derived rights mask.
type ResolvedAccess struct {
	KeyID       int64
	Descriptor  KeyDescriptor
	GrantRights *AccessRights
}

// SupersededBlob is one row returned by the GC interface: a key-blob
// no longer current, handed to the external collector for secure
// deletion. Cert/cert-chain rows are deleted in place and never returned.
type SupersededBlob struct {
	BlobID       int64
	SubComponent SubComponentType
	Blob         []byte
	Meta         BlobMetaData
}
