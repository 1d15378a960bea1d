// Package cache provides a minimal name-addressed blob store used for
// persisting interest points, match lists, and alignment transforms.
//
// File presence is the cache-hit signal, so the contract is deliberately
// small: Exists, Read, Write. Implementations can back onto a directory on
// disk or onto memory for tests.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is a name-addressed blob store.
type Store interface {
	// Exists reports whether a blob is present under the given key.
	Exists(key string) bool

	// Read returns the blob stored under the given key.
	Read(key string) ([]byte, error)

	// Write stores a blob under the given key, replacing any previous value.
	Write(key string, data []byte) error
}

// DirStore stores blobs as files inside a single directory. Keys are used
// directly as file names.
type DirStore struct {
	dir string
}

// NewDirStore creates a store rooted at the given directory, creating the
// directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

// Exists reports whether a file with this key exists in the directory.
func (s *DirStore) Exists(key string) bool {
	info, err := os.Stat(s.path(key))
	return err == nil && !info.IsDir()
}

// Read reads the blob from disk.
func (s *DirStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read cache entry %s: %w", key, err)
	}
	return data, nil
}

// Write writes the blob to disk.
func (s *DirStore) Write(key string, data []byte) error {
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}
