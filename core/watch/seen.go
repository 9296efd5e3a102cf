package watch

import (
	"context"
	"sync"
)

// SeenStore records which entity ids have already produced a notification.
// It is keyed by id, not by content: editing an already-seen teacher comment
// does not re-notify (accepted limitation). Implementations may be purely
// in-memory (watcher lifetime) or durably backed.
type SeenStore interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// MemorySeenStore is the process-local SeenStore.
type MemorySeenStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

var _ SeenStore = (*MemorySeenStore)(nil)

func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{keys: make(map[string]struct{})}
}

func (s *MemorySeenStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *MemorySeenStore) Add(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = struct{}{}
	return nil
}
