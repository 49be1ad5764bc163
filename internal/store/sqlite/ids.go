package sqlite

// Random id allocation for key ids and grant ids: draw a candidate,
// probe for collision, retry on conflict. Allocates random positive
// int64 ids from a cryptographically uniform source, excluding the
// reserved unassigned-owner sentinel.

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/veilkey/veilkeydb/internal/types"
)

const maxIDAllocAttempts = 100

// randomPositiveInt64 draws a uniformly random value in [1, math.MaxInt64],
// excluding the reserved unassigned-key sentinel by construction (it is
// negative, so no positive draw can collide with it).
func randomPositiveInt64() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("reading random bytes: %w", err)
	}
	v := int64(binary.BigEndian.Uint64(buf[:]) & math.MaxInt64)
	if v == 0 {
		v = 1
	}
	return v, nil
}

// allocateKeyID draws a fresh random id with no existing keyentry row,
// retrying on collision. It never returns
// types.UnassignedKeyID.
func allocateKeyID(ctx context.Context, tx *Tx) (int64, error) {
	for attempt := 0; attempt < maxIDAllocAttempts; attempt++ {
		id, err := randomPositiveInt64()
		if err != nil {
			return 0, err
		}
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM keyentry WHERE id = ?`, id).Scan(&exists)
		if err == nil {
			continue // collision, retry
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return id, nil
	}
	return 0, fmt.Errorf("allocating key id after %d attempts: %w", maxIDAllocAttempts, types.ErrSystemError)
}

// allocateGrantID draws a fresh random id with no existing grant row,
// retrying on unique-violation. It never
// returns types.UnassignedKeyID.
func allocateGrantID(ctx context.Context, tx *Tx) (int64, error) {
	for attempt := 0; attempt < maxIDAllocAttempts; attempt++ {
		id, err := randomPositiveInt64()
		if err != nil {
			return 0, err
		}
		if id == types.UnassignedKeyID {
			continue
		}
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM grant_ WHERE id = ?`, id).Scan(&exists)
		if err == nil {
			continue // collision, retry
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return id, nil
	}
	return 0, fmt.Errorf("allocating grant id after %d attempts: %w", maxIDAllocAttempts, types.ErrSystemError)
}
