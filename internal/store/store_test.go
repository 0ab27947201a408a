package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dukerupert/bywater/internal/database"
)

// setupTestDB opens a file-backed database in a temp dir through the real
// migration path. File-backed rather than :memory: so the pool's extra
// connections used by the concurrency tests see the same database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "bywater_test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedHousehold(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	hs := NewHouseholdStore(db)
	h, err := hs.Create(name)
	if err != nil {
		t.Fatalf("seed household: %v", err)
	}
	return h.ID
}

func seedChild(t *testing.T, db *sql.DB, householdID int64, name string) int64 {
	t.Helper()
	cs := NewChildStore(db)
	c, err := cs.Create(householdID, name, "", "", 0)
	if err != nil {
		t.Fatalf("seed child %s: %v", name, err)
	}
	return c.ID
}
