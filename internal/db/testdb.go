package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a database with the schema applied in a temporary
// directory. It is file backed so that concurrent callers get separate pooled
// connections, the same as the server.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	database, err := Open(filepath.Join(tb.TempDir(), "sneakerdex.sqlite3"))
	if err != nil {
		tb.Fatalf("opening test database: %v", err)
	}
	tb.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		tb.Fatalf("applying test database schema: %v", err)
	}
	return database
}
