package db

import (
	"path/filepath"
	"testing"
)

// newTestDB opens a fresh migrated database in a per-test temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}
