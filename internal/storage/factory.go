package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/config"
	"github.com/Veraticus/spice-ml/internal/service"
)

// Open returns the artifact store selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (service.ArtifactStore, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		return NewFileStore(cfg.StoragePath)
	case config.BackendSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", common.ErrInvalidConfig, cfg.StorageBackend)
	}
}
