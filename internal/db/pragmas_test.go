package db

import (
	"path/filepath"
	"testing"
)

// TestPragmasApplied verifies the connection settings on a new database.
func TestPragmasApplied(t *testing.T) {
	db := setupTestDB(t)
	assertPragmas(t, db)
}

// TestPragmasAppliedToExistingDB verifies the settings survive reopening.
func TestPragmasAppliedToExistingDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.db")

	first, err := NewDB(path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	first.Close()

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()
	assertPragmas(t, db)
}

// TestPragmasOnEveryPooledConnection holds one connection busy so the next
// query has to open a second one.
func TestPragmasOnEveryPooledConnection(t *testing.T) {
	db := setupTestDB(t)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer tx.Rollback()

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("Expected foreign_keys=1 on second connection, got %d", fk)
	}
}

func assertPragmas(t *testing.T, db *DB) {
	t.Helper()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	cases := []struct {
		pragma string
		want   int
	}{
		{"busy_timeout", 5000},
		{"synchronous", 1}, // NORMAL
		{"temp_store", 2},  // MEMORY
		{"foreign_keys", 1},
	}
	for _, c := range cases {
		var got int
		if err := db.QueryRow("PRAGMA " + c.pragma).Scan(&got); err != nil {
			t.Fatalf("Failed to query %s: %v", c.pragma, err)
		}
		if got != c.want {
			t.Errorf("Expected %s=%d, got %d", c.pragma, c.want, got)
		}
	}
}
