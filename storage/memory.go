package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore implements ObjectStore using an in-memory map.
// Data is lost when the process terminates. Suitable for testing and
// ephemeral sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates a new in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
	}
}

// Get returns the value for key, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to avoid external mutations
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, nil
}

// Put stores value under key.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	s.objects[key] = copied
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// QueryByPrefix returns all values whose key starts with prefix,
// in ascending key order.
func (s *MemoryStore) QueryByPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for _, key := range keys {
		copied := make([]byte, len(s.objects[key]))
		copy(copied, s.objects[key])
		values = append(values, copied)
	}
	return values, nil
}

// Verify MemoryStore implements ObjectStore
var _ ObjectStore = (*MemoryStore)(nil)
