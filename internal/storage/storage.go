// Package storage archives uploaded documents, to an S3-compatible bucket
// when configured and to the local filesystem otherwise.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/log"
)

// ObjectStore persists raw uploaded files. Indexing works off the extracted
// text; the stored object is the archival copy.
type ObjectStore interface {
	// Save writes the object and returns its location (URL or path).
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)

	// Open retrieves a stored object. Caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Kind identifies the backend ("s3" or "local") for /services/info.
	Kind() string
}

// New selects the backend from config: S3 when an endpoint and bucket are
// configured, local directory otherwise.
func New(cfg config.S3Config, logger log.Logger) (ObjectStore, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	if cfg.Enabled() {
		store, err := newMinioStore(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing S3 storage: %w", err)
		}
		logger.Info("object storage enabled", "backend", "s3", "bucket", cfg.Bucket)
		return store, nil
	}

	store, err := newLocalStore(cfg.LocalDir, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing local storage: %w", err)
	}
	logger.Info("object storage enabled", "backend", "local", "dir", cfg.LocalDir)
	return store, nil
}
