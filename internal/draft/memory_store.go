package draft

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Drafts do not survive a
// restart.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (s *MemoryStore) Save(_ context.Context, d Draft) error {
	d.Values = cloneValues(d.Values)
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.Key] = d
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[key]
	if !ok {
		return Draft{}, ErrNotFound
	}
	d.Values = cloneValues(d.Values)
	return d, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}
