package recompute

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"taaruf/internal/scoring"
	"taaruf/internal/traits"
	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

const (
	defaultBatchSize   = 200
	defaultParallelism = 8
	defaultLease       = 2 * time.Minute
	defaultPoll        = 5 * time.Second
)

// Worker recomputes trait vectors, either on demand through the outbox or in
// bulk through Sweep after an engine version bump.
type Worker struct {
	tests   traits.TestSource
	vectors traits.VectorStore
	tasks   TaskStore
	cursor  CursorStore

	batchSize   int
	parallelism int
	leaseFor    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Worker)

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithParallelism(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.parallelism = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

func NewWorker(tests traits.TestSource, vectors traits.VectorStore, tasks TaskStore, cursor CursorStore, opts ...Option) *Worker {
	w := &Worker{
		tests:       tests,
		vectors:     vectors,
		tasks:       tasks,
		cursor:      cursor,
		batchSize:   defaultBatchSize,
		parallelism: defaultParallelism,
		leaseFor:    defaultLease,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sweep walks every user with test results and recomputes stale vectors.
// The cursor is persisted after each page so a crashed sweep resumes from
// its last page. Returns the number of vectors rewritten.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	cursor, err := w.cursor.Get(ctx)
	if err != nil {
		return 0, err
	}

	recomputed := 0
	for {
		users, err := w.tests.ListUsers(ctx, cursor, w.batchSize)
		if err != nil {
			return recomputed, err
		}
		if len(users) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.parallelism)
		results := make([]bool, len(users))
		for i, userID := range users {
			g.Go(func() error {
				wrote, err := w.process(gctx, userID)
				results[i] = wrote
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return recomputed, err
		}
		for _, wrote := range results {
			if wrote {
				recomputed++
			}
		}

		cursor = users[len(users)-1].String()
		if err := w.cursor.Set(ctx, cursor); err != nil {
			return recomputed, err
		}
	}

	// Completed sweep; the next one starts from the beginning.
	if err := w.cursor.Set(ctx, ""); err != nil {
		return recomputed, err
	}
	w.logger.Info("trait vector sweep completed",
		"recomputed", recomputed,
		"engine_version", scoring.EngineVersion)
	return recomputed, nil
}

// Run drains the outbox until the context is canceled. Failed tasks are not
// acked and reappear after their lease expires.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(defaultPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	tasks, err := w.tasks.Lease(ctx, w.batchSize, w.leaseFor)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for _, task := range tasks {
		g.Go(func() error {
			if _, err := w.process(gctx, task.UserID); err != nil {
				w.logger.Warn("recompute failed, task will be redelivered",
					"user_id", task.UserID.String(),
					"attempts", task.Attempts,
					"error", err)
				return nil
			}
			return w.tasks.Ack(gctx, task.UserID)
		})
	}
	return g.Wait()
}

// process recomputes one user's vector when it is missing or stale. Returns
// whether a write happened.
func (w *Worker) process(ctx context.Context, userID domain.UserID) (bool, error) {
	tests, updatedAt, err := w.tests.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if len(tests) == 0 {
		return false, nil
	}

	stored, err := w.vectors.Get(ctx, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		// No vector yet, compute the first one.
	case err != nil:
		return false, err
	case !stored.Stale(scoring.EngineVersion, updatedAt):
		return false, nil
	}

	stamped := traits.ExtractStamped(userID, tests, scoring.EngineVersion, w.now())
	if err := w.vectors.Put(ctx, stamped); err != nil {
		return false, err
	}
	return true, nil
}
