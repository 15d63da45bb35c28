// Package testutil provides shared test helpers for data directories and archives.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/storage"
)

// TestDB creates a temporary SQLite archive that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tenderwatch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestData creates a temporary data directory wrapped in Collections.
func TestData(t *testing.T) (string, *storage.Collections) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, storage.NewCollections(store)
}

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
