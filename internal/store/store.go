// Package store contains all local persistence for the tap logger: the
// device identity, the trip-state checkpoint, the pending drafts, and the
// outbox. It is backed by a single SQLite file so state survives restarts.
// No business logic lives here — only SQL and type mapping.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the cgo-free "sqlite" driver

	"github.com/msabate/transit-logger/migrations"
)

// Open opens (creating if needed) the SQLite database at path and applies
// any pending migrations. The returned handle is safe for concurrent use.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	// busy_timeout covers the brief writer lock contention between the
	// engine goroutine and a flush deleting acknowledged rows.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: ping: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.Open: run migrations: %w", err)
	}

	return db, nil
}

// db is the minimal interface satisfied by *sql.DB and *sql.Tx. Accepting it
// instead of *sql.DB lets tests drive repos inside a transaction.
type db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows, allowing scan helpers
// to be reused for QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}
