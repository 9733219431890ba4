// Package blob stores run artifacts (manifests, PDF reports, route
// geometry exports — spec.md section 12) behind one Store interface,
// backed by a pluggable local/S3/GCS/Azure implementation selected by
// config.StorageConfig.Backend.
package blob

import (
	"context"
	"fmt"
	"io"

	"egress/internal/config"
)

// Store persists named byte blobs under a key namespace (typically
// run-id/artifact-name).
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Open constructs the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return newLocalStore(cfg.LocalPath), nil
	case "s3":
		return newS3Store(ctx, cfg)
	case "gcs":
		return newGCSStore(ctx, cfg)
	case "azure":
		return newAzureStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("blob: unknown storage backend %q", cfg.Backend)
	}
}
