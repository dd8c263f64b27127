package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

// GCSBlobStore implements port.BlobStore on a Cloud Storage bucket
type GCSBlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *zap.Logger
}

// NewGCSBlobStore connects with application default credentials
func NewGCSBlobStore(ctx context.Context, bucket, prefix string, logger *zap.Logger) (*GCSBlobStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSBlobStore{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

var _ port.BlobStore = (*GCSBlobStore)(nil)

// Put uploads content as one object
func (s *GCSBlobStore) Put(ctx context.Context, name string, content []byte, contentType string) error {
	key, err := s.objectName(name)
	if err != nil {
		return err
	}

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to write GCS object", zap.String("object", key), zap.Error(err))
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize GCS object", zap.String("object", key), zap.Error(err))
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// Get downloads the object
func (s *GCSBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := s.objectName(name)
	if err != nil {
		return nil, err
	}

	r, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return content, nil
}

// Exists checks the object's metadata
func (s *GCSBlobStore) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.objectName(name)
	if err != nil {
		return false, err
	}
	_, err = s.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat GCS object: %w", err)
	}
	return true, nil
}

// Delete removes the object; deleting a missing object succeeds
func (s *GCSBlobStore) Delete(ctx context.Context, name string) error {
	key, err := s.objectName(name)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object: %w", err)
	}
	return nil
}

// Close releases the client
func (s *GCSBlobStore) Close() error {
	return s.client.Close()
}

func (s *GCSBlobStore) objectName(name string) (string, error) {
	return objectKey(s.prefix, name)
}

// objectKey joins prefix and name, rejecting names that climb out of the prefix
func objectKey(prefix, name string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(name))
	if cleaned == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return strings.TrimPrefix(path.Join(prefix, cleaned), "/"), nil
}
