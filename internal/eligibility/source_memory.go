package eligibility

import (
	"context"
	"sync"

	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

// InMemoryAttributeSource is a test double for the external profile store.
type InMemoryAttributeSource struct {
	mu    sync.RWMutex
	attrs map[domain.UserID]Attributes
}

func NewInMemoryAttributeSource() *InMemoryAttributeSource {
	return &InMemoryAttributeSource{attrs: make(map[domain.UserID]Attributes)}
}

func (s *InMemoryAttributeSource) Seed(a Attributes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[a.UserID] = a
}

func (s *InMemoryAttributeSource) Attributes(_ context.Context, userID domain.UserID) (Attributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attrs[userID]
	if !ok {
		return Attributes{}, sentinel.ErrNotFound
	}
	return a, nil
}
