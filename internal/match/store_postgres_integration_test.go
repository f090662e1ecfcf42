//go:build integration

package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"taaruf/internal/match"
	"taaruf/internal/match/statemachine"
	"taaruf/internal/scoring"
	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
	"taaruf/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *match.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = match.NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "matches"))
}

func makeRecord() *match.Record {
	requester := domain.UserID(uuid.New())
	target := domain.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &match.Record{
		ID:              domain.NewMatchID(),
		PairKey:         domain.NewPairKey(requester, target),
		RequesterID:     requester,
		TargetID:        target,
		Status:          match.StatusPending,
		Step:            statemachine.StepRequesterApproved,
		RequesterViewed: true,
		GateOpenedBy:    requester,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	record := makeRecord()
	s.Require().NoError(s.store.Create(ctx, record))

	got, err := s.store.Get(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, got.ID)
	s.Equal(record.PairKey, got.PairKey)
	s.Equal(record.RequesterID, got.RequesterID)
	s.Equal(record.TargetID, got.TargetID)
	s.Equal(record.Status, got.Status)
	s.Equal(record.Step, got.Step)
	s.True(got.RequesterViewed)
	s.False(got.TargetViewed)
	s.Equal(record.GateOpenedBy, got.GateOpenedBy)
	s.Nil(got.Scores)

	byPair, err := s.store.GetByPairKey(ctx, record.PairKey)
	s.Require().NoError(err)
	s.Equal(record.ID, byPair.ID)
}

func (s *PostgresStoreSuite) TestDuplicatePairIsConflict() {
	ctx := context.Background()
	record := makeRecord()
	s.Require().NoError(s.store.Create(ctx, record))

	dup := makeRecord()
	dup.PairKey = record.PairKey
	err := s.store.Create(ctx, dup)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestScoresRoundTrip() {
	ctx := context.Background()
	record := makeRecord()
	s.Require().NoError(s.store.Create(ctx, record))

	computedAt := time.Now().UTC().Truncate(time.Microsecond)
	record.Scores = &scoring.Result{
		FinalScore:         82,
		Compatibility:      88.5,
		ConflictRisk:       10,
		EmotionalStability: 75,
		LifeAlignment:      90,
		MarriageStability:  82.5,
		Version:            scoring.EngineVersion,
		ComputedAt:         computedAt,
	}
	record.ScoreVersion = scoring.EngineVersion
	record.UpdatedAt = computedAt
	s.Require().NoError(s.store.Update(ctx, record))

	got, err := s.store.Get(ctx, record.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Scores)
	s.Equal(record.Scores.FinalScore, got.Scores.FinalScore)
	s.Equal(record.Scores.MarriageStability, got.Scores.MarriageStability)
	s.Equal(scoring.EngineVersion, got.Scores.Version)
	s.True(got.Scores.ComputedAt.Equal(computedAt))
}

func (s *PostgresStoreSuite) TestUpdateMissingIsNotFound() {
	ctx := context.Background()
	record := makeRecord()
	err := s.store.Update(ctx, record)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetMissingIsNotFound() {
	ctx := context.Background()
	_, err := s.store.Get(ctx, domain.NewMatchID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.GetByPairKey(ctx, domain.NewPairKey(domain.UserID(uuid.New()), domain.UserID(uuid.New())))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
