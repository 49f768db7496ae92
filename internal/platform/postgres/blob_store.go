package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/vision-gateway/internal/blob"
)

// BlobStore implements blob.Store on the blobs table. Each store is scoped to
// one logical bucket so inputs and outputs can share a table.
type BlobStore struct {
	db     DBTX
	bucket string
	logger *slog.Logger
}

var _ blob.Store = (*BlobStore)(nil)

// NewBlobStore returns a store for bucket.
func NewBlobStore(db DBTX, bucket string, logger *slog.Logger) (*BlobStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BlobStore{
		db:     db,
		bucket: bucket,
		logger: logger.With("component", "postgres_blob_store", "bucket", bucket),
	}, nil
}

// Put implements blob.Store. Existing keys are overwritten.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return blob.ErrEmptyKey
	}
	if data == nil {
		data = []byte{}
	}

	query := `
		INSERT INTO blobs (bucket, key, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (bucket, key)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, s.bucket, key, data); err != nil {
		s.logger.Error("failed to store blob", "key", key, "error", err)
		return fmt.Errorf("failed to store blob %s: %w", key, MapError(err))
	}

	s.logger.Debug("stored blob", "key", key, "size_bytes", len(data))
	return nil
}

// Get implements blob.Store.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, blob.ErrEmptyKey
	}

	var data []byte
	query := `SELECT data FROM blobs WHERE bucket = $1 AND key = $2`
	if err := s.db.QueryRowContext(ctx, query, s.bucket, key).Scan(&data); err != nil {
		return nil, fmt.Errorf("failed to get blob %s: %w", key, MapError(err))
	}
	return data, nil
}
