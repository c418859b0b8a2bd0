// Package persistence implements the Persistence Port (C9): idempotent
// storage for orders, trades, session state, and raw FIX messages. The
// reference implementation backs it with SQLite (pure-Go driver, no cgo)
// and write-ahead logging so a committed order is never lost once
// acknowledged. Only this package's Store type is load-bearing; the
// concrete schema is not part of any contract other callers rely on.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL handle. SQLite prefers a single writer, so the pool is
// capped at one connection; every query, admin reads included, waits its
// turn for that one connection.
type DB struct {
	handle *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("persistence: database path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persistence: create db directory: %w", err)
		}
	}

	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open sqlite: %w", err)
	}
	handle.SetMaxOpenConns(1)
	handle.SetConnMaxLifetime(time.Hour)

	return &DB{handle: handle}, nil
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.handle == nil {
		return nil
	}
	return d.handle.Close()
}

// SQL exposes the underlying *sql.DB for callers that need to construct a
// BatchWriter (bulk, non-critical-path writes such as trade journaling)
// directly against it.
func (d *DB) SQL() *sql.DB { return d.handle }
