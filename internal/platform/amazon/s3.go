package amazon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/phrazzld/vision-gateway/internal/blob"
)

// S3Store implements blob.Store on a single S3 bucket.
type S3Store struct {
	client s3iface.S3API
	bucket string
	logger *slog.Logger
}

var _ blob.Store = (*S3Store)(nil)

// NewS3Store returns a store writing to bucket.
func NewS3Store(client s3iface.S3API, bucket string, logger *slog.Logger) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		logger: logger.With("component", "s3_store", "bucket", bucket),
	}, nil
}

// Put implements blob.Store.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return blob.ErrEmptyKey
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3 object %s: %w", key, err)
	}

	s.logger.Debug("stored object", "key", key, "size_bytes", len(data))
	return nil
}

// Get implements blob.Store.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, blob.ErrEmptyKey
	}

	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if hasErrorCode(err, s3.ErrCodeNoSuchKey) {
			return nil, fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get s3 object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3 object %s: %w", key, err)
	}
	return data, nil
}
