package traits

import (
	"context"
	"time"

	"taaruf/pkg/domain"
)

// VectorStore persists stamped trait vectors. Stores return
// sentinel.ErrNotFound when no vector exists for a user.
type VectorStore interface {
	Get(ctx context.Context, userID domain.UserID) (Stamped, error)
	Put(ctx context.Context, v Stamped) error
}

// TestSource reads raw psychometric test records owned by the external
// assessment subsystem. updatedAt is the most recent change to any of the
// user's tests, used for staleness checks.
type TestSource interface {
	ListByUser(ctx context.Context, userID domain.UserID) (tests []TestResult, updatedAt time.Time, err error)
	// ListUsers pages user ids that have at least one test, ordered by id,
	// strictly after the cursor. An empty cursor starts from the beginning.
	ListUsers(ctx context.Context, afterID string, limit int) ([]domain.UserID, error)
}
