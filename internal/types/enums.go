package types

import "fmt"

// KeyType is the owner kind of a KeyEntry. The integer assignment is part
// of the on-disk external contract and must never change.
type KeyType int32

const (
	KeyTypeClient KeyType = 0
	KeyTypeSuper  KeyType = 1
)

func (k KeyType) Valid() bool { return k == KeyTypeClient || k == KeyTypeSuper }

func (k KeyType) String() string {
	switch k {
	case KeyTypeClient:
		return "Client"
	case KeyTypeSuper:
		return "Super"
	default:
		return fmt.Sprintf("KeyType(%d)", int32(k))
	}
}

// KeyLifeCycle is the lifecycle state of a KeyEntry.
type KeyLifeCycle int32

const (
	KeyLifeCycleExisting     KeyLifeCycle = 0
	KeyLifeCycleLive         KeyLifeCycle = 1
	KeyLifeCycleUnreferenced KeyLifeCycle = 2
)

func (s KeyLifeCycle) Valid() bool {
	return s == KeyLifeCycleExisting || s == KeyLifeCycleLive || s == KeyLifeCycleUnreferenced
}

func (s KeyLifeCycle) String() string {
	switch s {
	case KeyLifeCycleExisting:
		return "Existing"
	case KeyLifeCycleLive:
		return "Live"
	case KeyLifeCycleUnreferenced:
		return "Unreferenced"
	default:
		return fmt.Sprintf("KeyLifeCycle(%d)", int32(s))
	}
}

// BlobState is the state of a BlobEntry.
type BlobState int32

const (
	BlobStateCurrent    BlobState = 0
	BlobStateSuperseded BlobState = 1
	BlobStateOrphaned   BlobState = 2
)

func (s BlobState) Valid() bool {
	return s == BlobStateCurrent || s == BlobStateSuperseded || s == BlobStateOrphaned
}

func (s BlobState) String() string {
	switch s {
	case BlobStateCurrent:
		return "Current"
	case BlobStateSuperseded:
		return "Superseded"
	case BlobStateOrphaned:
		return "Orphaned"
	default:
		return fmt.Sprintf("BlobState(%d)", int32(s))
	}
}

// SubComponentType names the kind of blob attached to a key.
type SubComponentType int32

const (
	SubComponentKeyBlob   SubComponentType = 0
	SubComponentCert      SubComponentType = 1
	SubComponentCertChain SubComponentType = 2
)

func (s SubComponentType) Valid() bool {
	return s == SubComponentKeyBlob || s == SubComponentCert || s == SubComponentCertChain
}

func (s SubComponentType) String() string {
	switch s {
	case SubComponentKeyBlob:
		return "KeyBlob"
	case SubComponentCert:
		return "Cert"
	case SubComponentCertChain:
		return "CertChain"
	default:
		return fmt.Sprintf("SubComponentType(%d)", int32(s))
	}
}

// ScopeKind is the owner-scope discriminant: an App identity (uid) or a
// Selinux policy namespace.
type ScopeKind int32

const (
	ScopeApp ScopeKind = iota
	ScopeSelinux
)

func (s ScopeKind) Valid() bool { return s == ScopeApp || s == ScopeSelinux }

// Scope pairs a ScopeKind with its namespace parameter: the caller uid for
// App, or the policy namespace id for Selinux.
type Scope struct {
	Kind      ScopeKind
	Namespace int64
}

// DescriptorTag is the caller-facing locator kind.
type DescriptorTag int32

const (
	DescriptorApp DescriptorTag = iota
	DescriptorSelinux
	DescriptorGrant
	DescriptorKeyID
	DescriptorBlob
)

// AccessRights is a bitmask of operations a grant authorizes.
type AccessRights uint32

const (
	RightUse AccessRights = 1 << iota
	RightGetInfo
	RightDelete
	RightGrant
	RightRebind
	RightManageAccess
)

func (r AccessRights) Has(bit AccessRights) bool { return r&bit != 0 }

// MetaTag is the closed enumeration of BlobMetaData/KeyMetaData tags.
// Unknown tags decode to ErrOutOfRange: forward writers
// of new tags must add a case here, never fall through silently.
type MetaTag int32

const (
	// Blob metadata tags.
	TagEncryptedBy MetaTag = iota
	TagSalt
	TagIV
	TagAEADTag
	TagKmUUID
	TagPublicKey
	TagMaxBootLevel
	// Key metadata tags.
	TagCreationDate
	TagAttestationChallenge
	TagAttestationApplicationID
	TagSidecarECDHPublicKey
)

func (t MetaTag) Valid() bool {
	return t >= TagEncryptedBy && t <= TagSidecarECDHPublicKey
}

// ParamTag is the closed enumeration of KeyParameter tags.
// Only UsageCountLimit is mutable post-insert.
type ParamTag int32

const (
	ParamUsageCountLimit ParamTag = iota
	ParamUserSecureID
	ParamAuthTimeout
	ParamAlgorithm
	ParamKeySize
	ParamDigest
	ParamPurpose
	ParamMaxBootLevel
)

func (t ParamTag) Valid() bool { return t >= ParamUsageCountLimit && t <= ParamMaxBootLevel }
