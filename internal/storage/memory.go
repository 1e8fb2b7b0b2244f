package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps artifacts in memory. Used by tests and local runs
// without a writable artifact directory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (s *MemoryStore) Put(ctx context.Context, artifactID string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[artifactID] = buf
	s.types[artifactID] = contentType
	return artifactID, nil
}

// Get resolves a stored artifact by reference.
func (s *MemoryStore) Get(ref string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[ref]
	return data, s.types[ref], ok
}

// Len reports how many artifacts are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
