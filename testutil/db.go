// Package testutil provides shared helpers for store-backed tests.
// The local store is a plain SQLite file, so unlike a server database it
// needs no opt-in environment variable: every test gets its own file in a
// temp directory, fully migrated, removed when the test finishes.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/msabate/transit-logger/internal/store"
)

// NewDB opens a fresh, fully migrated SQLite store in the test's temp
// directory. The handle is closed automatically when the test (and all its
// subtests) finish.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "taplog.db")
	db, err := store.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("testutil.NewDB: open: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
