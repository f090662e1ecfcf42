package recompute

import (
	"context"
	"sync"
	"time"

	"taaruf/pkg/domain"
)

// InMemoryTaskStore is the single-process outbox. Enqueue is idempotent per
// user: a user already pending or leased is not enqueued again.
type InMemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[domain.UserID]*memTask
	now   func() time.Time
}

type memTask struct {
	task        Task
	leasedUntil time.Time
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[domain.UserID]*memTask),
		now:   time.Now,
	}
}

// WithClock overrides the time source for lease-expiry tests.
func (s *InMemoryTaskStore) WithClock(now func() time.Time) *InMemoryTaskStore {
	s.now = now
	return s
}

func (s *InMemoryTaskStore) Enqueue(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[userID]; ok {
		return nil
	}
	s.tasks[userID] = &memTask{task: Task{UserID: userID, EnqueuedAt: s.now()}}
	return nil
}

func (s *InMemoryTaskStore) Lease(_ context.Context, limit int, leaseFor time.Duration) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []Task
	for _, t := range s.tasks {
		if len(out) >= limit {
			break
		}
		if t.leasedUntil.After(now) {
			continue
		}
		t.leasedUntil = now.Add(leaseFor)
		t.task.Attempts++
		out = append(out, t.task)
	}
	return out, nil
}

func (s *InMemoryTaskStore) Ack(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, userID)
	return nil
}

// Pending reports how many tasks remain, leased or not. Test helper.
func (s *InMemoryTaskStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// InMemoryCursorStore holds the sweep cursor in memory.
type InMemoryCursorStore struct {
	mu     sync.Mutex
	cursor string
}

func NewInMemoryCursorStore() *InMemoryCursorStore { return &InMemoryCursorStore{} }

func (s *InMemoryCursorStore) Get(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *InMemoryCursorStore) Set(_ context.Context, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	return nil
}
