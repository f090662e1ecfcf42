package match

import (
	"context"
	"errors"

	"taaruf/internal/scoring"
	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

// ScoreSource bridges pair scores between match records and the scoring
// service: it reads the stored result for drift observation and writes fresh
// results back, without leaking the match store itself.
type ScoreSource struct {
	store Store
	tx    TxRunner
}

func NewScoreSource(store Store, tx TxRunner) *ScoreSource {
	return &ScoreSource{store: store, tx: tx}
}

func (s *ScoreSource) StoredResult(ctx context.Context, key domain.PairKey) (scoring.Result, bool, error) {
	m, err := s.store.GetByPairKey(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return scoring.Result{}, false, nil
	}
	if err != nil {
		return scoring.Result{}, false, err
	}
	if m.Scores == nil {
		return scoring.Result{}, false, nil
	}
	return *m.Scores, true, nil
}

// SaveResult annotates the pair's match record with the result. A pair with
// no record yet is a silent no-op; scoring does not create matches.
func (s *ScoreSource) SaveResult(ctx context.Context, key domain.PairKey, r scoring.Result) error {
	return s.tx.RunInTx(ctx, key, func(store Store) error {
		m, err := store.GetByPairKey(ctx, key)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		m.Scores = &r
		m.ScoreVersion = r.Version
		return store.Update(ctx, m)
	})
}
