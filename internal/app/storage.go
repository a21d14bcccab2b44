package app

import (
	"context"
	"fmt"

	"github.com/hydrobill/hydrobill/internal/platform/storage"
)

// NewStore returns the object store selected by STORAGE_PROVIDER and a close func.
func NewStore(ctx context.Context, cfg *Config) (storage.Store, func() error, error) {
	switch cfg.StorageProvider {
	case "gcs":
		gcs, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs bucket %s: %w", cfg.GCSBucket, err)
		}
		return gcs, gcs.Close, nil
	default:
		local, err := storage.NewLocal(cfg.StorageDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage dir %s: %w", cfg.StorageDir, err)
		}
		return local, func() error { return nil }, nil
	}
}
