package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

var (
	// ErrNotFound is returned when no blob exists at the requested path
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidPath is returned for empty paths or paths escaping the store root
	ErrInvalidPath = errors.New("invalid blob path")
)

// Backend names accepted by New
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config selects and configures the blob backend
type Config struct {
	Backend  string
	LocalDir string
	Bucket   string
	Prefix   string
}

// New builds the configured blob store
func New(ctx context.Context, cfg Config, logger *zap.Logger) (port.BlobStore, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalBlobStore(cfg.LocalDir, logger)
	case BackendGCS:
		return NewGCSBlobStore(ctx, cfg.Bucket, cfg.Prefix, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
