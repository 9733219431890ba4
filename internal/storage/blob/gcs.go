package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"

	"egress/internal/config"
)

// gcsStore stores blobs in one Google Cloud Storage bucket under
// cfg.CloudPrefix/key.
type gcsStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

func newGCSStore(ctx context.Context, cfg config.StorageConfig) (*gcsStore, error) {
	if cfg.CloudBucket == "" {
		return nil, errors.New("blob: gcs backend requires storage.cloud_bucket")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: new gcs client: %w", err)
	}
	return &gcsStore{client: client, bucket: cfg.CloudBucket, prefix: cfg.CloudPrefix}, nil
}

func (s *gcsStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *gcsStore) object(key string) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.key(key))
}

func (s *gcsStore) Put(ctx context.Context, key string, r io.Reader) error {
	w := s.object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("blob: close %s: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", key, err)
	}
	return r, nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	if err := s.object(key).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blob: attrs %s: %w", key, err)
	}
	return true, nil
}
