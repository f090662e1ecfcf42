package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"taaruf/internal/match"
	sm "taaruf/internal/match/statemachine"
	"taaruf/internal/notify"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
	"taaruf/pkg/platform/sentinel"
)

type CoordinatorSuite struct {
	suite.Suite
	store       *match.InMemoryStore
	notes       *notify.InMemoryStore
	coordinator *Coordinator
	ctx         context.Context

	alice domain.UserID
	bob   domain.UserID
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.store = match.NewInMemoryStore()
	s.notes = notify.NewInMemoryStore()
	s.coordinator = NewCoordinator(s.store, match.NewShardedTx(s.store), notify.NewService(s.notes))
	s.ctx = context.Background()

	s.alice = domain.UserID(uuid.New())
	s.bob = domain.UserID(uuid.New())
}

func (s *CoordinatorSuite) TestFirstApprovalCreatesRecord() {
	res, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)
	s.Equal(match.StatusPending, res.Status)
	s.Equal(sm.StepRequesterApproved, res.Step)
	s.False(res.BothApproved)

	stored, err := s.store.GetByPairKey(s.ctx, domain.NewPairKey(s.alice, s.bob))
	s.Require().NoError(err)
	s.True(stored.RequesterViewed)
	s.False(stored.TargetViewed)

	notes, err := s.notes.ListByRecipient(s.ctx, s.bob)
	s.Require().NoError(err)
	s.Require().Len(notes, 1, "only the counterpart hears about one-sided approval")
	s.Equal("counterpart_approved", notes[0].EventType)
}

func (s *CoordinatorSuite) TestSecondSideActivatesMatch() {
	_, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)

	res, err := s.coordinator.Approve(s.ctx, s.bob, s.alice)
	s.Require().NoError(err)
	s.True(res.BothApproved)
	s.Equal(match.StatusApproved, res.Status)
	s.Equal(sm.StepChatting, res.Step)

	for _, party := range []domain.UserID{s.alice, s.bob} {
		notes, err := s.notes.ListByRecipient(s.ctx, party)
		s.Require().NoError(err)
		var active int
		for _, n := range notes {
			if n.EventType == "match_active" {
				active++
			}
		}
		s.Equal(1, active, "exactly one match active notification per party")
	}
}

func (s *CoordinatorSuite) TestIdempotentReApproval() {
	first, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)

	second, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)
	s.Equal(first, second, "repeat call returns identical state")

	notes, err := s.notes.ListByRecipient(s.ctx, s.bob)
	s.Require().NoError(err)
	s.Len(notes, 1, "no additional notification on re-approval")
}

func (s *CoordinatorSuite) TestSelfMatchRejected() {
	_, err := s.coordinator.Approve(s.ctx, s.alice, s.alice)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CoordinatorSuite) TestConcurrentMutualApproval() {
	// Regardless of interleaving, both sides approving concurrently must end
	// in exactly one final state and one activation notification per party.
	const rounds = 20
	for range rounds {
		s.SetupTest()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.coordinator.Approve(s.ctx, s.bob, s.alice)
			s.NoError(err)
		}()
		wg.Wait()

		stored, err := s.store.GetByPairKey(s.ctx, domain.NewPairKey(s.alice, s.bob))
		s.Require().NoError(err)
		s.Equal(match.StatusApproved, stored.Status)
		s.Equal(sm.StepChatting, stored.Step)

		for _, party := range []domain.UserID{s.alice, s.bob} {
			notes, err := s.notes.ListByRecipient(s.ctx, party)
			s.Require().NoError(err)
			var active int
			for _, n := range notes {
				if n.EventType == "match_active" {
					active++
				}
			}
			s.Equal(1, active)
		}
	}
}

// racingStore simulates a first-create race as seen under independent SQL
// transactions: the read misses, then the insert collides with a row the
// counterpart's transaction committed in between.
type racingStore struct {
	match.Store
	counterpart *match.Record
	fired       bool
}

func (r *racingStore) Create(ctx context.Context, record *match.Record) error {
	if !r.fired {
		r.fired = true
		if err := r.Store.Create(ctx, r.counterpart); err != nil {
			return err
		}
		return sentinel.ErrConflict
	}
	return r.Store.Create(ctx, record)
}

func (s *CoordinatorSuite) TestFirstApprovalCreateRaceRecordsBothSides() {
	key := domain.NewPairKey(s.alice, s.bob)
	racing := &racingStore{
		Store: s.store,
		counterpart: &match.Record{
			ID:              domain.NewMatchID(),
			PairKey:         key,
			RequesterID:     s.alice,
			TargetID:        s.bob,
			Status:          match.StatusPending,
			Step:            sm.StepRequesterApproved,
			RequesterViewed: true,
			GateOpenedBy:    s.alice,
		},
	}
	coordinator := NewCoordinator(racing, match.NewShardedTx(racing), notify.NewService(s.notes))

	// Bob's approval loses the insert race to Alice's; it must still count.
	res, err := coordinator.Approve(s.ctx, s.bob, s.alice)
	s.Require().NoError(err, "losing the create race must not drop the approval")
	s.True(res.BothApproved)
	s.Equal(sm.StepChatting, res.Step)

	stored, err := s.store.GetByPairKey(s.ctx, key)
	s.Require().NoError(err)
	s.True(stored.RequesterViewed)
	s.True(stored.TargetViewed)
	s.Equal(match.StatusApproved, stored.Status)
}

func (s *CoordinatorSuite) TestReject() {
	s.Run("reject before mutual approval notifies both sides", func() {
		_, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
		s.Require().NoError(err)

		res, err := s.coordinator.Reject(s.ctx, s.bob, s.alice)
		s.Require().NoError(err)
		s.Equal(match.StatusRejected, res.Status)
		s.Equal(sm.StepRejected, res.Step)

		for _, party := range []domain.UserID{s.alice, s.bob} {
			notes, err := s.notes.ListByRecipient(s.ctx, party)
			s.Require().NoError(err)
			var rejected int
			for _, n := range notes {
				if n.EventType == "match_rejected" {
					rejected++
				}
			}
			s.Equal(1, rejected, "both parties hear about the rejection once")
		}
	})

	s.Run("rejecting an approved match is invalid", func() {
		s.SetupTest()
		_, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
		s.Require().NoError(err)
		_, err = s.coordinator.Approve(s.ctx, s.bob, s.alice)
		s.Require().NoError(err)

		_, err = s.coordinator.Reject(s.ctx, s.alice, s.bob)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("rejecting a missing pair is not found", func() {
		s.SetupTest()
		_, err := s.coordinator.Reject(s.ctx, s.alice, s.bob)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CoordinatorSuite) TestApprovalAfterFinalizedMatch() {
	_, err := s.coordinator.Approve(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)
	_, err = s.coordinator.Reject(s.ctx, s.bob, s.alice)
	s.Require().NoError(err)

	_, err = s.coordinator.Approve(s.ctx, s.alice, s.bob)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}
