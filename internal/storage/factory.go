package storage

import (
	"context"
	"fmt"

	"github.com/imedwei/backup-retention/internal/config"
)

// NewStorage creates a storage provider based on configuration.
// Failures are not retried here; the SDK clients apply their own retry policy.
func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	var storage Storage
	var err error

	switch cfg.StorageProvider {
	case config.ProviderS3:
		s3Config := S3Config{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			UsePathStyle:    cfg.Endpoint != "", // Use path style for custom endpoints
			PageSize:        int32(cfg.PageSize),
		}
		storage, err = NewS3Storage(ctx, s3Config)

	case config.ProviderGCS:
		if err := ValidateServiceAccountJSON(cfg.GoogleServiceAccountJSON); err != nil {
			return nil, fmt.Errorf("invalid GCS service account: %w", err)
		}

		gcsConfig := GCSConfig{
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			PageSize:           cfg.PageSize,
		}
		storage, err = NewGCSStorage(ctx, gcsConfig)

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.StorageProvider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage: %w", cfg.StorageProvider, err)
	}

	return storage, nil
}
