package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/veilkey/veilkeydb/internal/types"
)

// txBehavior selects how the write transaction is opened: Deferred for
// read-mostly work, Immediate for anything that intends to write,
// acquiring SQLite's write lock up front so concurrent writers fail fast
// into the busy-retry loop instead of deadlocking against each other
// mid-transaction.
type txBehavior int

const (
	txDeferred txBehavior = iota
	txImmediate
)

func (b txBehavior) beginSQL() string {
	if b == txImmediate {
		return "BEGIN IMMEDIATE"
	}
	return "BEGIN DEFERRED"
}

// busyRetryInterval is the fixed short backoff the runner sleeps between
// retries on a busy/locked signal.
const busyRetryInterval = 500 * time.Microsecond

// Tx is the handle a transaction closure operates on: a single
// connection with an open SQLite transaction. database/sql's *sql.Tx
// has no notion of BEGIN IMMEDIATE, so the runner drives the connection
// directly with raw BEGIN/COMMIT/ROLLBACK statements instead.
type Tx struct {
	conn *sql.Conn
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.conn.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.conn.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.conn.QueryRowContext(ctx, query, args...)
}

// TxResult is what a transaction closure returns: its value plus whether
// the commit should be followed by a GC notification. NeedGCResult,
// NoGCResult and DoGCResult are composition helpers for the three ways
// a closure can decide that.
type TxResult[T any] struct {
	NeedGC bool
	Value  T
}

func NeedGCResult[T any](v T) TxResult[T]  { return TxResult[T]{NeedGC: true, Value: v} }
func NoGCResult[T any](v T) TxResult[T]    { return TxResult[T]{NeedGC: false, Value: v} }
func DoGCResult[T any](gc bool, v T) TxResult[T] { return TxResult[T]{NeedGC: gc, Value: v} }

// withTransaction wraps closure in a transaction with the requested
// behavior. It commits iff closure returns a nil
// error, rolling back otherwise; it retries indefinitely on
// "database busy/locked" with a fixed backoff, surfacing any other
// error unchanged; and on successful commit with NeedGC set, notifies
// the collector handle. Notification is best-effort and never affects
// the caller's result.
func withTransaction[T any](ctx context.Context, db *DB, behavior txBehavior, fn func(tx *Tx) (TxResult[T], error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		conn, err := db.sql.Conn(ctx)
		if err != nil {
			return zero, fmt.Errorf("acquiring connection: %w", err)
		}

		if _, err := conn.ExecContext(ctx, behavior.beginSQL()); err != nil {
			conn.Close()
			if isBusy(err) {
				time.Sleep(busyRetryInterval)
				continue
			}
			return zero, fmt.Errorf("beginning transaction: %w", err)
		}

		result, err := fn(&Tx{conn: conn})
		if err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			conn.Close()
			if isBusy(err) {
				time.Sleep(busyRetryInterval)
				continue
			}
			return zero, err
		}

		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			conn.Close()
			if isBusy(err) {
				time.Sleep(busyRetryInterval)
				continue
			}
			return zero, fmt.Errorf("committing transaction: %w", err)
		}
		conn.Close()

		if result.NeedGC {
			db.gc.Notify()
		}
		return result.Value, nil
	}
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

// wrapInvariant converts an unexpected affected-row count into
// ErrSystemError: e.g. a rebind affecting != 1 row aborts the
// transaction and surfaces as SystemError.
func wrapInvariant(format string, args ...any) error {
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", types.ErrSystemError)
}
