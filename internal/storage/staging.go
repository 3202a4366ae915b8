package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Stager keeps uploaded files on local disk while they belong to an authoring session
type Stager struct {
	dir    string
	logger *zap.Logger
}

// NewStager creates a stager writing into "dir", creating it if needed
func NewStager(dir string, logger *zap.Logger) (*Stager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Stager{
		dir:    dir,
		logger: logger,
	}, nil
}

// Stage copies "r" into a new staged file. The content type is detected from
// the content itself, not from the client supplied name.
func (s *Stager) Stage(name string, r io.Reader) (*StagedFile, error) {
	path := filepath.Join(s.dir, GenerateFileName(filepath.Ext(name)))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	counter := newSizeWriter()
	_, err = io.Copy(file, io.TeeReader(r, counter))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to detect content type: %w", err)
	}

	return &StagedFile{
		name:        filepath.Base(name),
		path:        path,
		size:        counter.Size(),
		contentType: mtype.String(),
		logger:      s.logger,
	}, nil
}

// Clean removes every staged file left over from a previous run
func (s *Stager) Clean() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove staged file: %w", err)
		}
	}
	return nil
}

// StagedFile is an uploaded file held on local disk until it is released
type StagedFile struct {
	name        string
	path        string
	size        int64
	contentType string
	logger      *zap.Logger

	once       sync.Once
	releaseErr error
}

// Name returns the client supplied file name
func (f *StagedFile) Name() string { return f.name }

// ContentType returns the detected MIME type
func (f *StagedFile) ContentType() string { return f.contentType }

// Size returns the size in bytes
func (f *StagedFile) Size() int64 { return f.size }

// Path returns the location of the staged copy
func (f *StagedFile) Path() string { return f.path }

// Open opens the staged copy for reading
func (f *StagedFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// Release deletes the staged copy. Calling it more than once is a no-op.
func (f *StagedFile) Release() error {
	f.once.Do(func() {
		err := os.Remove(f.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.releaseErr = fmt.Errorf("failed to remove staged file: %w", err)
			return
		}
		f.logger.Debug("staged file released", zap.String("file", f.name))
	})
	return f.releaseErr
}
