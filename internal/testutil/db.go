package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/courtline/courtline/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedPlayer inserts a player row for fixtures.
func SeedPlayer(t *testing.T, database *db.DB, id, name string) {
	t.Helper()

	err := database.CreatePlayer(context.Background(), db.Player{
		ID:    id,
		Name:  name,
		Email: id + "@example.com",
	})
	if err != nil {
		t.Fatalf("seed player %s: %v", id, err)
	}
}
