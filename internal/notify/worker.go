package notify

import (
	"context"
	"log/slog"
)

// Worker consumes notifications from a channel and writes them through the
// service, moving emission off the request path. A failed emit is logged and
// dropped; the dedupe key makes upstream retries safe.
type Worker struct {
	service *Service
	inbox   <-chan Notification
	logger  *slog.Logger
}

type WorkerOption func(*Worker)

func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

func NewWorker(service *Service, inbox <-chan Notification, opts ...WorkerOption) *Worker {
	w := &Worker{service: service, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-w.inbox:
			if _, err := w.service.Emit(ctx, n); err != nil {
				w.logger.Warn("queued notification emit failed",
					"event_type", n.EventType,
					"dedupe_key", n.DedupeKey,
					"error", err)
			}
		}
	}
}

// AsyncEmitter queues notifications onto a Worker's inbox. It satisfies the
// services' notifier dependency; the reported created flag is optimistic
// since deduplication happens later in the worker.
type AsyncEmitter struct {
	inbox chan<- Notification
}

func NewAsyncEmitter(inbox chan<- Notification) *AsyncEmitter {
	return &AsyncEmitter{inbox: inbox}
}

func (e *AsyncEmitter) Emit(ctx context.Context, n Notification) (bool, error) {
	select {
	case e.inbox <- n:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
