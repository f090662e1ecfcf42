// Package recompute keeps stored trait vectors current: an outbox of
// per-user recompute tasks drained by a worker, plus a cursor-resumable full
// sweep for engine version bumps.
package recompute

import (
	"context"
	"time"

	"taaruf/pkg/domain"
)

// Task is one pending recompute for a user. Delivery is at-least-once; the
// work itself is idempotent per user so duplicates are harmless.
type Task struct {
	UserID     domain.UserID
	EnqueuedAt time.Time
	Attempts   int
}

// TaskStore is the recompute outbox. Lease hands out up to limit tasks and
// hides them for the lease duration; tasks not acked before the lease ends
// become visible again.
type TaskStore interface {
	Enqueue(ctx context.Context, userID domain.UserID) error
	Lease(ctx context.Context, limit int, leaseFor time.Duration) ([]Task, error)
	Ack(ctx context.Context, userID domain.UserID) error
}

// CursorStore persists the sweep position so a restarted sweep resumes
// instead of reprocessing from the start.
type CursorStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, cursor string) error
}
