package match

import (
	"context"
	"sync"
	"time"

	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
	"taaruf/pkg/platform/sentinel"
)

// InMemoryStore keeps match records in maps guarded by a single RWMutex.
// Mutation atomicity across read-validate-write comes from ShardedTx, not
// from this lock.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[domain.MatchID]*Record
	byPair map[domain.PairKey]domain.MatchID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[domain.MatchID]*Record),
		byPair: make(map[domain.PairKey]domain.MatchID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPair[record.PairKey]; exists {
		return sentinel.ErrConflict
	}
	cp := *record
	s.byID[record.ID] = &cp
	s.byPair[record.PairKey] = record.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.MatchID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *InMemoryStore) GetByPairKey(_ context.Context, key domain.PairKey) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPair[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *record
	s.byID[record.ID] = &cp
	return nil
}

// ShardedTx serializes mutations per pair key using sharded mutexes, the
// in-memory stand-in for a database transaction. The pair key is immutable
// for the life of a record, so shard selection is stable.
const numTxShards = 128

// defaultTxTimeout bounds one match transaction.
const defaultTxTimeout = 5 * time.Second

type ShardedTx struct {
	shards  [numTxShards]sync.Mutex
	store   Store
	timeout time.Duration
}

func NewShardedTx(store Store) *ShardedTx {
	return &ShardedTx{store: store}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key domain.PairKey, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := int(hashKey(key.String()) % numTxShards)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(t.store)
}

// hashKey uses FNV-1a for shard distribution.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
