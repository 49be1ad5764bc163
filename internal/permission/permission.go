// Package permission declares the narrow callback interface the key
// database invokes to check caller permissions. The core never
// interprets or caches a verdict: it calls Check once per operation and
// propagates the error verbatim.
package permission

import "github.com/veilkey/veilkeydb/internal/types"

// Check is a pure predicate over a canonical descriptor and an optional
// grant-derived rights mask. Implementations live entirely outside this
// module.
type Check func(descriptor types.KeyDescriptor, rights *types.AccessRights) error

// Allow is a Check that never denies, useful for tests and tools that do
// not wire a real policy engine.
func Allow(types.KeyDescriptor, *types.AccessRights) error { return nil }
