package session

import (
	"context"
	"sync"
	"time"

	"shopbot/internal/flow"
)

// MemoryStore is an in-process Store used in tests and single-node setups.
// Expired entries are dropped lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	state     flow.State
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*flow.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, userID)
		return nil, nil
	}
	state := entry.state
	return &state, nil
}

func (s *MemoryStore) Put(_ context.Context, userID int64, state *flow.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[userID] = memoryEntry{state: *state, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)
	return nil
}
