package notify

import (
	"context"
	"sync"

	"taaruf/pkg/domain"
)

// InMemoryStore is the dedupe-aware in-memory sink used in tests and
// single-instance deployments.
type InMemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byKey: make(map[string]Notification)}
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, n Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byKey[n.DedupeKey]; exists {
		return false, nil
	}
	s.byKey[n.DedupeKey] = n
	return true, nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, recipientID domain.UserID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.byKey {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}
