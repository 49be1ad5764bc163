// Package types defines the domain values shared by the key database: the
// closed enumerations stored on disk, the in-memory entities built from
// them, and the categorical error kinds the store surfaces to callers.
package types

import "errors"

// Error kinds surfaced to callers. These are sentinels, not
// concrete types: wrap them with fmt.Errorf("...: %w", ErrKeyNotFound) and
// callers use errors.Is to classify.
var (
	// ErrKeyNotFound means resolution found no Live matching entry or grant.
	ErrKeyNotFound = errors.New("key not found")
	// ErrInvalidArgument means a malformed descriptor, illegal scope, missing
	// alias where required, or an already-occupied migration destination.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidKeyBlob means usage-count exhaustion or a reference to a
	// missing key.
	ErrInvalidKeyBlob = errors.New("invalid key blob")
	// ErrSystemError means an internal invariant was violated: an update
	// affected an unexpected row count, a type conversion failed, or a
	// time computation overflowed.
	ErrSystemError = errors.New("system error")
	// ErrStorageBusy is absorbed by the transaction runner (§4.3) and must
	// never escape it.
	ErrStorageBusy = errors.New("storage busy")
	// ErrOutOfRange means a stored integer cell did not decode to a known
	// enum value, indicating corruption.
	ErrOutOfRange = errors.New("value out of range")
	// ErrPermissionDenied is an opaque pass-through from the caller-supplied
	// permission check.
	ErrPermissionDenied = errors.New("permission denied")
)
