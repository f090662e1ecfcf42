package abuse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite

	ctx       context.Context
	counters  *InMemoryCounterStore
	penalties *InMemoryPenaltyStore
	clock     time.Time
	actor     domain.UserID
	target    domain.UserID
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.counters = NewInMemoryCounterStore().WithClock(s.now)
	s.penalties = NewInMemoryPenaltyStore()
	s.actor = domain.UserID(uuid.New())
	s.target = domain.UserID(uuid.New())
}

func (s *GuardSuite) now() time.Time { return s.clock }

func (s *GuardSuite) advance(d time.Duration) { s.clock = s.clock.Add(d) }

func (s *GuardSuite) newGuard(p Policy) *Guard {
	return NewGuard(s.counters, s.penalties, p, WithClock(s.now))
}

func (s *GuardSuite) decision() Decision {
	return Decision{
		ActorID:    s.actor,
		TargetID:   s.target,
		Class:      ClassDecision,
		SourceAddr: "203.0.113.7",
	}
}

func (s *GuardSuite) TestActorWindow() {
	const limit = 5
	g := s.newGuard(Policy{ActorLimit: limit, ActorWindow: time.Minute})

	s.Run("nth request in window passes", func() {
		for i := 0; i < limit; i++ {
			s.Require().NoError(g.Check(s.ctx, s.decision()))
		}
	})

	s.Run("n plus first is rejected", func() {
		err := g.Check(s.ctx, s.decision())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	s.Run("window expiry resets the counter", func() {
		s.advance(time.Minute + time.Second)
		s.Require().NoError(g.Check(s.ctx, s.decision()))
	})
}

func (s *GuardSuite) TestAddrWindow() {
	g := s.newGuard(Policy{AddrLimit: 2, AddrWindow: time.Minute})

	d := s.decision()
	s.Require().NoError(g.Check(s.ctx, d))

	// A different actor behind the same address shares the address counter.
	d.ActorID = domain.UserID(uuid.New())
	s.Require().NoError(g.Check(s.ctx, d))

	d.ActorID = domain.UserID(uuid.New())
	err := g.Check(s.ctx, d)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	s.Run("different address is unaffected", func() {
		d.SourceAddr = "198.51.100.1"
		s.Require().NoError(g.Check(s.ctx, d))
	})
}

func (s *GuardSuite) TestIdempotencyReplay() {
	g := s.newGuard(Policy{IdempotencyTTL: time.Hour})

	d := s.decision()
	d.IdempotencyKey = "key-1"
	s.Require().NoError(g.Check(s.ctx, d))

	s.Run("replay within ttl is a duplicate", func() {
		err := g.Check(s.ctx, d)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeIdempotentDuplicate))
	})

	s.Run("different key passes", func() {
		d.IdempotencyKey = "key-2"
		s.Require().NoError(g.Check(s.ctx, d))
	})

	s.Run("same key from another actor passes", func() {
		other := d
		other.ActorID = domain.UserID(uuid.New())
		other.IdempotencyKey = "key-1"
		s.Require().NoError(g.Check(s.ctx, other))
	})

	s.Run("replay after ttl passes", func() {
		s.advance(time.Hour + time.Second)
		d.IdempotencyKey = "key-1"
		s.Require().NoError(g.Check(s.ctx, d))
	})
}

func (s *GuardSuite) TestPairCooldown() {
	g := s.newGuard(Policy{PairCooldown: 5 * time.Second})

	s.Require().NoError(g.Check(s.ctx, s.decision()))

	s.Run("immediate repeat on same pair is rejected", func() {
		err := g.Check(s.ctx, s.decision())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})

	s.Run("different target is unaffected", func() {
		d := s.decision()
		d.TargetID = domain.UserID(uuid.New())
		s.Require().NoError(g.Check(s.ctx, d))
	})

	s.Run("cooldown expiry admits the pair again", func() {
		s.advance(6 * time.Second)
		s.Require().NoError(g.Check(s.ctx, s.decision()))
	})
}

func (s *GuardSuite) TestBurstEscalation() {
	const threshold = 3
	g := s.newGuard(Policy{BurstThreshold: threshold, BurstWindow: 10 * time.Minute})

	breach := func() error {
		var last error
		for i := 0; i <= threshold; i++ {
			last = g.Check(s.ctx, s.decision())
		}
		return last
	}

	// Three consecutive breaches escalate the freeze: 1m, 10m, 24h.
	wantFreezes := []time.Duration{time.Minute, 10 * time.Minute, 24 * time.Hour}
	for i, want := range wantFreezes {
		err := breach()
		s.Require().Error(err, "breach %d", i+1)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

		state, getErr := s.penalties.Get(s.ctx, s.actor)
		s.Require().NoError(getErr)
		s.Equal(i+1, state.Level)
		s.Equal(s.clock.Add(want), state.FreezeUntil)

		// Wait out the freeze and the burst window before the next round.
		s.advance(want + 10*time.Minute + time.Second)
	}
}

func (s *GuardSuite) TestFrozenActorRejectedBeforeCounters() {
	g := s.newGuard(Policy{ActorLimit: 100, ActorWindow: time.Minute})

	s.Require().NoError(s.penalties.Save(s.ctx, PenaltyState{
		UserID:      s.actor,
		Level:       1,
		FreezeUntil: s.clock.Add(time.Minute),
	}))

	err := g.Check(s.ctx, s.decision())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))

	n, getErr := s.counters.Get(s.ctx, actorKey(s.actor, ClassDecision))
	s.Require().NoError(getErr)
	s.Zero(n, "frozen actor must not consume counters")

	s.Run("thaw restores access", func() {
		s.advance(2 * time.Minute)
		s.Require().NoError(g.Check(s.ctx, s.decision()))
	})
}

func (s *GuardSuite) TestStoreFailureDegradation() {
	broken := &failingCounterStore{err: errors.New("connection refused")}

	s.Run("fail open admits", func() {
		g := NewGuard(broken, s.penalties, Policy{FailOpen: true, ActorLimit: 1, ActorWindow: time.Minute}, WithClock(s.now))
		s.Require().NoError(g.Check(s.ctx, s.decision()))
	})

	s.Run("fail closed rejects", func() {
		g := NewGuard(broken, s.penalties, Policy{ActorLimit: 1, ActorWindow: time.Minute}, WithClock(s.now))
		err := g.Check(s.ctx, s.decision())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	})
}

func (s *GuardSuite) TestClassesIsolated() {
	g := s.newGuard(Policy{ActorLimit: 1, ActorWindow: time.Minute})

	s.Require().NoError(g.Check(s.ctx, s.decision()))
	s.Require().Error(g.Check(s.ctx, s.decision()))

	d := s.decision()
	d.Class = ClassScoring
	s.Require().NoError(g.Check(s.ctx, d), "a different class has its own window")
}

type failingCounterStore struct{ err error }

func (f *failingCounterStore) Get(context.Context, string) (int64, error) { return 0, f.err }
func (f *failingCounterStore) SetNX(context.Context, string, time.Duration) (bool, error) {
	return false, f.err
}
func (f *failingCounterStore) IncrementWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 0, f.err
}
