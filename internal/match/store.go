package match

import (
	"context"

	"taaruf/pkg/domain"
)

// Store persists match records. Implementations return sentinel.ErrNotFound
// for missing records and sentinel.ErrConflict when a create would violate
// pair-key uniqueness.
type Store interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id domain.MatchID) (*Record, error)
	GetByPairKey(ctx context.Context, key domain.PairKey) (*Record, error)
	Update(ctx context.Context, record *Record) error
}

// TxRunner provides the atomic boundary for match mutations: read current
// step, validate legality, write new state, all under one transaction. The
// pair key selects the linearization domain: transitions for the same pair
// are serialized, different pairs are unordered relative to each other.
type TxRunner interface {
	RunInTx(ctx context.Context, key domain.PairKey, fn func(store Store) error) error
}
