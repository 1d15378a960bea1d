package cache

import (
	"fmt"
)

// MemStore is an in-memory Store used by tests. It records how many reads
// and writes each key has seen so tests can assert on cache behavior.
type MemStore struct {
	blobs      map[string][]byte
	ReadCount  map[string]int
	WriteCount map[string]int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		blobs:      map[string][]byte{},
		ReadCount:  map[string]int{},
		WriteCount: map[string]int{},
	}
}

// Exists reports whether the key has been written.
func (s *MemStore) Exists(key string) bool {
	_, ok := s.blobs[key]
	return ok
}

// Read returns a stored blob.
func (s *MemStore) Read(key string) ([]byte, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("read cache entry %s: not found", key)
	}
	s.ReadCount[key]++
	return data, nil
}

// Write stores a blob.
func (s *MemStore) Write(key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	s.WriteCount[key]++
	return nil
}
