package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	lockerID  string
	expiresAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates a store whose selections expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetLocker records the selection for ttl. Expired selections of other
// sessions are dropped on the way.
func (s *MemoryStore) SetLocker(_ context.Context, sessionID, lockerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[sessionID] = entry{lockerID: lockerID, expiresAt: now.Add(s.ttl)}
	return nil
}

// Locker returns the selected locker, or "" when none is live.
func (s *MemoryStore) Locker(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return "", nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, sessionID)
		return "", nil
	}
	return e.lockerID, nil
}

// Clear forgets the selection.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
