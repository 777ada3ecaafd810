package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/sneakerdex/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	// First call should generate a secret.
	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	// Second call should return the same secret.
	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestSettingsGetSet(t *testing.T) {
	settings := &Settings{DB: db.NewTestDB(t)}
	ctx := context.Background()

	if _, err := settings.Get(ctx, "pref.size_unit"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := settings.Set(ctx, "pref.size_unit", "EU"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := settings.Set(ctx, "pref.size_unit", "US"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err := settings.Get(ctx, "pref.size_unit")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "US" {
		t.Errorf("expected last write 'US', got %q", got)
	}
}
