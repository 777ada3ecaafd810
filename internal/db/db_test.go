package db

import (
	"path/filepath"
	"testing"
)

func TestOpenAppliesPragmasToEveryConnection(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()
	database.SetMaxOpenConns(2)

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	// Hold one connection so the query below runs on a second one.
	tx, err := database.Begin()
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	var fk int
	if err := database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Errorf("expected foreign keys on, got %d", fk)
	}

	_, err = database.Exec(`INSERT INTO sneakers (id, owner_id, brand, model) VALUES ('x', 999, 'Nike', 'Dunk')`)
	if err == nil {
		t.Error("expected foreign key violation for unknown owner")
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	database := NewTestDB(t)
	if err := EnsureSchema(database); err != nil {
		t.Errorf("second EnsureSchema: %v", err)
	}
}
