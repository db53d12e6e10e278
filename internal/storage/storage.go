package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ecoroute/crm-api/internal/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned when a storage path has no object behind it
var ErrObjectNotFound = errors.New("object not found")

// Storage reads stored files and issues time-limited download links
type Storage interface {
	// Open streams the object at storagePath
	Open(ctx context.Context, storagePath string) (io.ReadCloser, error)
	// PresignURL returns a URL that grants read access to storagePath for ttl
	PresignURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error)
}

// NewStorage creates the backend selected by cfg.Mode
func NewStorage(ctx context.Context, cfg *config.StorageConfig, publicBaseURL string, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, publicBaseURL, cfg.LocalSigningKey)
	case "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(ctx, cfg.CloudConnectionString, cfg.CloudContainer, logger)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}
