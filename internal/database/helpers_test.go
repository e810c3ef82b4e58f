package database

import (
	"context"
	"testing"
)

// newTestDB returns a migrated in-memory SQLite database
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New("sqlite::memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}
