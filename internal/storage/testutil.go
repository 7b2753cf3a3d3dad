package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates an in-memory catalog with the full schema and registers
// cleanup with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    db := storage.NewTestDB(t)
//	    // ... test code ...
//	}
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// NewTestDBFile creates a file-based catalog in t.TempDir() and returns its
// path. Use it to test persistence across connections.
func NewTestDBFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog", "catalog.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}
