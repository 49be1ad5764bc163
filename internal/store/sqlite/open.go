// Package sqlite is the persistent key database: schema and migrator,
// the key-id-lock-aware transaction runner, the entity codec, key/blob
// CRUD, access resolution, grants, lifecycle/namespace operations, and
// the garbage-collection interface. It runs on database/sql over the
// ncruces/go-sqlite3 driver, with an ordered-migration-list shape and a
// BEGIN IMMEDIATE-for-writers discipline borrowed from the layout of
// simpler SQLite-backed CLI stores, generalized here to a key-material
// schema.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/veilkey/veilkeydb/internal/collector"
	"github.com/veilkey/veilkeydb/internal/keylock"
	"github.com/veilkey/veilkeydb/internal/types"
)

// CurrentSchemaVersion is the schema version stored inside the durable
// file once all migrations have run.
const CurrentSchemaVersion = 2

// FileName is the fixed name of the durable file.
const FileName = "persistent.sqlite"

// DB is the key database: the durable *sql.DB, the process-wide key-id
// lock manager, and the GC collector handle.
type DB struct {
	sql       *sql.DB
	fileLock  *flock.Flock
	locks     *keylock.Manager
	gc        collector.Handle
	maxList   int
	gcBatch   int
}

// Options configures Open.
type Options struct {
	// PageCacheKiB overrides SQLite's per-connection page cache (roughly
	// 0.5 MiB default).
	PageCacheKiB int
	// MaxListRows bounds listing-call result sizes.
	MaxListRows int
	// GCBatchSize bounds HandleNextSupersededBlobs batch size.
	GCBatchSize int
	// Collector is notified after commits flagged need_gc. May be nil,
	// in which case collector.NoOp{} is used.
	Collector collector.Handle
}

// Open opens (creating if absent) persistent.sqlite under dir, runs
// pending migrations, and sweeps any Existing entries left behind by a
// crash to Unreferenced.
func Open(dir string, opts Options) (*DB, error) {
	path := filepath.Join(dir, FileName)

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring process lock for %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("another process already holds %s: %w", path, types.ErrSystemError)
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1) // one connection: the engine serializes writers anyway

	pageCacheKiB := opts.PageCacheKiB
	if pageCacheKiB == 0 {
		pageCacheKiB = 512
	}
	if _, err := sqlDB.Exec(fmt.Sprintf("PRAGMA cache_size = -%d", pageCacheKiB)); err != nil {
		sqlDB.Close()
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("setting page cache: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		sqlDB.Close()
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("configuring pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	gc := opts.Collector
	if gc == nil {
		gc = collector.NoOp{}
	}
	maxList := opts.MaxListRows
	if maxList == 0 {
		maxList = 10000
	}
	gcBatch := opts.GCBatchSize
	if gcBatch == 0 {
		gcBatch = 64
	}

	db := &DB{sql: sqlDB, fileLock: fileLock, locks: keylock.New(), gc: gc, maxList: maxList, gcBatch: gcBatch}

	if err := db.CleanupLeftovers(context.Background()); err != nil {
		sqlDB.Close()
		_ = fileLock.Unlock()
		return nil, fmt.Errorf("startup sweep: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection and the single-instance
// process file lock guarding persistent.sqlite, preventing two daemons
// from racing schema migration.
func (db *DB) Close() error {
	err := db.sql.Close()
	if db.fileLock != nil {
		_ = db.fileLock.Unlock()
	}
	return err
}

// sweepExistingOnStartup enforces invariant #1: Existing is transient.
// Any KeyEntry found Existing at startup (left behind by a crash between
// create_key_entry and its first rebind_alias) is transitioned to
// Unreferenced before the store serves any client.
func (db *DB) sweepExistingOnStartup() error {
	ctx := context.Background()
	_, err := withTransaction(ctx, db, txImmediate, func(tx *Tx) (TxResult[struct{}], error) {
		_, err := tx.ExecContext(ctx, `UPDATE keyentry SET state = ? WHERE state = ?`,
			int32(types.KeyLifeCycleUnreferenced), int32(types.KeyLifeCycleExisting))
		return NoGCResult(struct{}{}), err
	})
	return err
}
