package abuse

import (
	"context"
	"sync"
	"time"
)

// InMemoryCounterStore implements CounterStore with expiring entries guarded
// by one mutex. Not distributed; use the Redis store across instances.
type InMemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	now     func() time.Time
}

type counterEntry struct {
	value     int64
	expiresAt time.Time
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{
		entries: make(map[string]*counterEntry),
		now:     time.Now,
	}
}

// WithClock overrides the time source; tests use it to step windows forward.
func (s *InMemoryCounterStore) WithClock(now func() time.Time) *InMemoryCounterStore {
	s.now = now
	return s
}

func (s *InMemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	return e.value, nil
}

func (s *InMemoryCounterStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(key) != nil {
		return false, nil
	}
	s.entries[key] = &counterEntry{value: 1, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *InMemoryCounterStore) IncrementWithExpiry(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		e = &counterEntry{expiresAt: s.now().Add(window)}
		s.entries[key] = e
	}
	e.value++
	return e.value, nil
}

// live returns the entry for a key, dropping it first if expired.
// Must be called while holding s.mu.
func (s *InMemoryCounterStore) live(key string) *counterEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}
