package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"taaruf/pkg/domain"
)

func TestWorkerDrainsInbox(t *testing.T) {
	store := NewInMemoryStore()
	service := NewService(store)

	inbox := make(chan Notification, 4)
	worker := NewWorker(service, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	first := New("match_active",
		domain.MatchID(uuid.New()), domain.UserID(uuid.New()),
		"your match is active", time.Now())
	inbox <- first
	inbox <- first // dedupe replay, must not block the loop
	inbox <- New("photo_approved",
		domain.MatchID(uuid.New()), domain.UserID(uuid.New()),
		"photo approved", time.Now())

	require.Eventually(t, func() bool {
		got, err := store.ListByRecipient(context.Background(), first.RecipientID)
		return err == nil && len(got) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

type flakyStore struct {
	*InMemoryStore
	failures int
}

func (f *flakyStore) CreateIfAbsent(ctx context.Context, n Notification) (bool, error) {
	if f.failures > 0 {
		f.failures--
		return false, errors.New("store unavailable")
	}
	return f.InMemoryStore.CreateIfAbsent(ctx, n)
}

func TestWorkerSurvivesEmitFailures(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(), failures: 1}
	service := NewService(store, WithLogger(slog.New(slog.DiscardHandler)))

	inbox := make(chan Notification, 2)
	worker := NewWorker(service, inbox, WithWorkerLogger(slog.New(slog.DiscardHandler)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	dropped := New("match_active",
		domain.MatchID(uuid.New()), domain.UserID(uuid.New()),
		"your match is active", time.Now())
	delivered := New("photo_approved",
		domain.MatchID(uuid.New()), domain.UserID(uuid.New()),
		"photo approved", time.Now())
	inbox <- dropped
	inbox <- delivered

	require.Eventually(t, func() bool {
		got, err := store.ListByRecipient(context.Background(), delivered.RecipientID)
		return err == nil && len(got) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncEmitterQueuesForWorker(t *testing.T) {
	store := NewInMemoryStore()
	service := NewService(store)

	inbox := make(chan Notification, 4)
	worker := NewWorker(service, inbox)
	emitter := NewAsyncEmitter(inbox)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	n := New("match_active",
		domain.MatchID(uuid.New()), domain.UserID(uuid.New()),
		"your match is active", time.Now())
	created, err := emitter.Emit(context.Background(), n)
	require.NoError(t, err)
	require.True(t, created)

	require.Eventually(t, func() bool {
		got, err := store.ListByRecipient(context.Background(), n.RecipientID)
		return err == nil && len(got) == 1
	}, time.Second, 5*time.Millisecond)

	t.Run("full inbox respects context cancellation", func(t *testing.T) {
		blocked := NewAsyncEmitter(make(chan Notification))
		done, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := blocked.Emit(done, n)
		require.ErrorIs(t, err, context.Canceled)
	})
}
