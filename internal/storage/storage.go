// Package storage stores course assets and stages uploaded files on local disk
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// localStorage stores files on the local filesystem
type localStorage struct {
	basePath string
	baseURL  string
	logger   *zap.Logger
}

// NewLocalStorage creates a new localStorage instance.
//
// "basePath" is the root directory of stored files.
// "baseURL" is the public prefix under which the root directory is served.
func NewLocalStorage(basePath, baseURL string, logger *zap.Logger) *localStorage {
	return &localStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// generatePath generates the full file path based on id and kind.
// It converts underscores in kind to path separators.
func (s *localStorage) generatePath(id, kind string) string {
	typePath := strings.ReplaceAll(kind, "_", string(filepath.Separator))
	return filepath.Join(s.basePath, typePath, filepath.Base(id))
}

// Save writes the content of "r" to a new file
func (s *localStorage) Save(ctx context.Context, id, kind string, r io.Reader, size int64, contentType string) error {
	path := s.generatePath(id, kind)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	counter := newSizeWriter()
	if _, err := io.Copy(file, io.TeeReader(r, counter)); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if size >= 0 && counter.Size() != size {
		os.Remove(path)
		return fmt.Errorf("failed to write file: wrote %d of %d bytes", counter.Size(), size)
	}

	s.logger.Debug("file stored", zap.String("path", path), zap.Int64("size", counter.Size()))
	return nil
}

// Open opens a stored file for reading
func (s *localStorage) Open(ctx context.Context, id, kind string) (io.ReadCloser, error) {
	return os.Open(s.generatePath(id, kind))
}

// Delete removes a stored file
func (s *localStorage) Delete(ctx context.Context, id, kind string) error {
	return os.Remove(s.generatePath(id, kind))
}

// URL returns the public URL of a stored file
func (s *localStorage) URL(id, kind string) string {
	return s.baseURL + "/" + ObjectKey(id, kind)
}
