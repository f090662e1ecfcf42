package notify

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Service writes notifications through the dedupe-aware store and, when a new
// row was actually created, fans the event out. Event publishing is best
// effort: a failed produce never rolls back the stored notification.
type Service struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

type Option func(*Service)

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, opts ...Option) *Service {
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Emit persists the notification if its dedupe key is unseen. Returns whether
// a new notification was created; replays are a silent no-op.
func (s *Service) Emit(ctx context.Context, n Notification) (bool, error) {
	created, err := s.store.CreateIfAbsent(ctx, n)
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	if s.events != nil {
		payload, err := json.Marshal(eventPayload{
			EventType:   n.EventType,
			MatchID:     n.MatchID.String(),
			RecipientID: n.RecipientID.String(),
			Message:     n.Message,
			CreatedAt:   n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
		if err == nil {
			err = s.events.Publish(ctx, n.DedupeKey, payload)
		}
		if err != nil {
			s.logger.Warn("notification event publish failed",
				"event_type", n.EventType,
				"dedupe_key", n.DedupeKey,
				"error", err)
		}
	}
	return true, nil
}

type eventPayload struct {
	EventType   string `json:"event_type"`
	MatchID     string `json:"match_id"`
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	CreatedAt   string `json:"created_at"`
}
