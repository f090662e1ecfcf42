package traits

import (
	"context"
	"sort"
	"sync"
	"time"

	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

// InMemoryVectorStore keeps stamped vectors in a map. Used in tests and
// single-instance deployments without Postgres.
type InMemoryVectorStore struct {
	mu      sync.RWMutex
	vectors map[domain.UserID]Stamped
}

func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{vectors: make(map[domain.UserID]Stamped)}
}

func (s *InMemoryVectorStore) Get(_ context.Context, userID domain.UserID) (Stamped, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vectors[userID]
	if !ok {
		return Stamped{}, sentinel.ErrNotFound
	}
	return v, nil
}

func (s *InMemoryVectorStore) Put(_ context.Context, v Stamped) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[v.UserID] = v
	return nil
}

// InMemoryTestSource is a test double for the external assessment subsystem.
type InMemoryTestSource struct {
	mu      sync.RWMutex
	tests   map[domain.UserID][]TestResult
	updated map[domain.UserID]time.Time
}

func NewInMemoryTestSource() *InMemoryTestSource {
	return &InMemoryTestSource{
		tests:   make(map[domain.UserID][]TestResult),
		updated: make(map[domain.UserID]time.Time),
	}
}

// Seed replaces a user's tests and records the update time.
func (s *InMemoryTestSource) Seed(userID domain.UserID, updatedAt time.Time, tests ...TestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests[userID] = append([]TestResult(nil), tests...)
	s.updated[userID] = updatedAt
}

func (s *InMemoryTestSource) ListByUser(_ context.Context, userID domain.UserID) ([]TestResult, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TestResult(nil), s.tests[userID]...), s.updated[userID], nil
}

func (s *InMemoryTestSource) ListUsers(_ context.Context, afterID string, limit int) ([]domain.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tests))
	for id, tests := range s.tests {
		if len(tests) > 0 {
			ids = append(ids, id.String())
		}
	}
	sort.Strings(ids)

	out := make([]domain.UserID, 0, limit)
	for _, raw := range ids {
		if raw <= afterID {
			continue
		}
		id, err := domain.ParseUserID(raw)
		if err != nil {
			continue
		}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
