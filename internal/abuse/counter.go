// Package abuse implements the advisory defense-in-depth layer in front of
// match decisions: sliding-window rate limits, per-pair cooldowns, escalating
// penalty freezes, and idempotency-key deduplication. The match store remains
// the sole source of truth for workflow state; this layer only rejects early.
package abuse

import (
	"context"
	"time"
)

// CounterStore is the key-value counter abstraction the guard runs on. A
// shared external implementation (Redis) serves multi-instance deployments;
// the in-memory implementation serves tests and single-node setups.
type CounterStore interface {
	// Get returns the current value for a key, 0 when absent or expired.
	Get(ctx context.Context, key string) (int64, error)
	// SetNX writes a marker only if the key is absent, with a TTL. Returns
	// whether the marker was newly set.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IncrementWithExpiry atomically increments a counter, starting its
	// expiry window on first increment, and returns the new value.
	IncrementWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error)
}
