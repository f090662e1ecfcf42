package abuse

import (
	"context"
	"sync"
	"time"

	"taaruf/pkg/domain"
)

// PenaltyState tracks a user's abuse history: the escalation level and the
// freeze currently in force, if any. Created lazily on first detection.
type PenaltyState struct {
	UserID      domain.UserID
	Level       int
	FreezeUntil time.Time
}

// Frozen reports whether the user is currently frozen.
func (p PenaltyState) Frozen(now time.Time) bool {
	return now.Before(p.FreezeUntil)
}

// freezeDurations maps escalation level to freeze duration. Levels beyond the
// table stay at the last entry.
var freezeDurations = []time.Duration{
	time.Minute,
	10 * time.Minute,
	24 * time.Hour,
}

// FreezeFor returns the freeze duration for a penalty level (1-based).
func FreezeFor(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	if level > len(freezeDurations) {
		level = len(freezeDurations)
	}
	return freezeDurations[level-1]
}

// PenaltyStore persists penalty state. Get returns a zero-valued state for
// unknown users; penalties exist only once abuse is detected.
type PenaltyStore interface {
	Get(ctx context.Context, userID domain.UserID) (PenaltyState, error)
	Save(ctx context.Context, state PenaltyState) error
}

// InMemoryPenaltyStore keeps penalty state in a map.
type InMemoryPenaltyStore struct {
	mu     sync.RWMutex
	states map[domain.UserID]PenaltyState
}

func NewInMemoryPenaltyStore() *InMemoryPenaltyStore {
	return &InMemoryPenaltyStore{states: make(map[domain.UserID]PenaltyState)}
}

func (s *InMemoryPenaltyStore) Get(_ context.Context, userID domain.UserID) (PenaltyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.states[userID]
	state.UserID = userID
	return state, nil
}

func (s *InMemoryPenaltyStore) Save(_ context.Context, state PenaltyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserID] = state
	return nil
}
