package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ml/internal/storage"
)

// SetupSQLiteStore creates an in-memory SQLite artifact store with migrations
// applied. It is closed automatically when the test ends.
func SetupSQLiteStore(t testing.TB) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SetupFileStore creates a file-backed artifact store in a temporary directory.
func SetupFileStore(t testing.TB) *storage.FileStore {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return store
}
