package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// FileStore implements Store with one JSON document per request path
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store under dir. See ResolveDir for
// how an unusable dir is handled.
func NewFileStore(dir string) (*FileStore, error) {
	dir = filepath.Join(ResolveDir(dir), "responses")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory entries are written to.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Get implements Reader
func (fs *FileStore) Get(_ context.Context, path string) (*Entry, error) {
	data, err := os.ReadFile(fs.path(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache file for %s: %w", path, err)
	}
	if entry.Path != path {
		return nil, ErrNotFound
	}
	return &entry, nil
}

// Put implements Writer
func (fs *FileStore) Put(_ context.Context, entry *Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Write to temporary file first, then rename (atomic operation)
	path := fs.path(entry.Path)
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Close implements Store
func (fs *FileStore) Close() error {
	return nil
}

// path generates the full filesystem path for a request path
func (fs *FileStore) path(requestPath string) string {
	return filepath.Join(fs.dir, KeyFor(requestPath))
}
