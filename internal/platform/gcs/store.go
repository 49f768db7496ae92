// Package gcs provides a Google Cloud Storage blob backend.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/vision-gateway/internal/blob"
)

// Store implements blob.Store on one GCS bucket.
type Store struct {
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

var _ blob.Store = (*Store)(nil)

// NewStore returns a store for bucket using client.
func NewStore(client *storage.Client, bucket string, logger *slog.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("gcs client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("gcs bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		bucket: client.Bucket(bucket),
		name:   bucket,
		logger: logger.With("component", "gcs_store", "bucket", bucket),
	}, nil
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return blob.ErrEmptyKey
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gcs object %s: %w", key, err)
	}
	// The upload is only committed by Close
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to commit gcs object %s: %w", key, err)
	}

	s.logger.Debug("stored object", "key", key, "size_bytes", len(data))
	return nil
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, blob.ErrEmptyKey
	}

	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open gcs object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gcs object %s: %w", key, err)
	}
	return data, nil
}
