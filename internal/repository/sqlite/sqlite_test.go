package sqlite

import (
	"testing"
)

// newTestDB returns a fresh in-memory database with the full schema applied.
// Each test gets its own database, so tests never interfere with each other.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
