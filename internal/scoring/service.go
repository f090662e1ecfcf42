package scoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taaruf/internal/traits"
	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

// DriftObserver receives the gap between a freshly computed final score and a
// previously stored one. Satisfied by the match metrics set.
type DriftObserver interface {
	ObserveDrift(gap float64)
}

// StoredResultSource looks up a previously persisted pair result, if any.
// Used only for drift observation, never to skip recomputation.
type StoredResultSource interface {
	StoredResult(ctx context.Context, key domain.PairKey) (Result, bool, error)
}

// ResultSink persists a freshly computed result onto the pair's match record,
// when one exists. Saving is best effort and never fails the request.
type ResultSink interface {
	SaveResult(ctx context.Context, key domain.PairKey, r Result) error
}

// Service evaluates pairs on demand, refreshing stale trait vectors through
// the extractor before scoring.
type Service struct {
	tests   traits.TestSource
	vectors traits.VectorStore
	stored  StoredResultSource
	sink    ResultSink
	drift   DriftObserver
	logger  *slog.Logger
	now     func() time.Time
}

type ServiceOption func(*Service)

func WithStoredResults(src StoredResultSource) ServiceOption {
	return func(s *Service) { s.stored = src }
}

func WithResultSink(sink ResultSink) ServiceOption {
	return func(s *Service) { s.sink = sink }
}

func WithDriftObserver(obs DriftObserver) ServiceOption {
	return func(s *Service) { s.drift = obs }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(tests traits.TestSource, vectors traits.VectorStore, opts ...ServiceOption) *Service {
	s := &Service{
		tests:   tests,
		vectors: vectors,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pair scores two participants, recomputing either side's trait vector first
// when it is missing or stale. Symmetric in (a, b).
func (s *Service) Pair(ctx context.Context, a, b domain.UserID) (Result, error) {
	left, err := s.freshVector(ctx, a)
	if err != nil {
		return Result{}, err
	}
	right, err := s.freshVector(ctx, b)
	if err != nil {
		return Result{}, err
	}

	result := Compute(left, right, s.now())
	key := domain.NewPairKey(a, b)
	// Drift is measured against the previous stored result before the fresh
	// one replaces it.
	s.observeDrift(ctx, key, result)
	s.persist(ctx, key, result)
	return result, nil
}

// UserReadiness computes the single-party readiness index from the user's
// fresh trait vector.
func (s *Service) UserReadiness(ctx context.Context, userID domain.UserID) (float64, error) {
	v, err := s.freshVector(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Readiness(v.Vector), nil
}

// freshVector returns a vector guaranteed current for the user's tests and
// engine version, writing through on recompute. A user with no tests yields a
// zero-source stamp so Compute degrades to the neutral result.
func (s *Service) freshVector(ctx context.Context, userID domain.UserID) (traits.Stamped, error) {
	tests, updatedAt, err := s.tests.ListByUser(ctx, userID)
	if err != nil {
		return traits.Stamped{}, err
	}
	if len(tests) == 0 {
		return traits.Stamped{UserID: userID, Version: EngineVersion, ComputedAt: s.now()}, nil
	}

	stored, err := s.vectors.Get(ctx, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
	case err != nil:
		return traits.Stamped{}, err
	case !stored.Stale(EngineVersion, updatedAt):
		return stored, nil
	}

	stamped := traits.ExtractStamped(userID, tests, EngineVersion, s.now())
	if err := s.vectors.Put(ctx, stamped); err != nil {
		return traits.Stamped{}, err
	}
	return stamped, nil
}

// observeDrift compares a fresh result against the persisted one for the
// pair, if any. Failures here never fail the scoring request.
func (s *Service) observeDrift(ctx context.Context, key domain.PairKey, fresh Result) {
	if s.stored == nil || s.drift == nil {
		return
	}
	prev, ok, err := s.stored.StoredResult(ctx, key)
	if err != nil {
		s.logger.Warn("stored result lookup failed", "error", err)
		return
	}
	if !ok {
		return
	}
	s.drift.ObserveDrift(Drift(fresh, prev))
}

func (s *Service) persist(ctx context.Context, key domain.PairKey, r Result) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveResult(ctx, key, r); err != nil {
		s.logger.Warn("pair result persist failed", "error", err)
	}
}
