package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docvoice/docvoice/internal/log"
)

// localStore keeps objects under a directory. The fallback when no S3
// endpoint is configured.
type localStore struct {
	dir    string
	logger log.Logger
}

func newLocalStore(dir string, logger log.Logger) (*localStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating upload directory %q: %w", dir, err)
	}
	return &localStore{dir: dir, logger: logger}, nil
}

// sanitizeName strips path components so object names cannot escape the
// upload directory.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, "..") {
		return "unnamed"
	}
	return name
}

func (s *localStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	path := filepath.Join(s.dir, sanitizeName(name))

	f, err := os.Create(path) // #nosec G304 -- path is sanitized above
	if err != nil {
		return "", fmt.Errorf("creating %q: %w", path, err)
	}

	written, err := io.Copy(f, r)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing %q: %w", path, err)
	}

	s.logger.Debug("stored object", "path", path, "size", written)
	return path, nil
}

func (s *localStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	path := filepath.Join(s.dir, sanitizeName(name))
	f, err := os.Open(path) // #nosec G304 -- path is sanitized above
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	return f, nil
}

func (s *localStore) Kind() string { return "local" }
