package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"taaruf/internal/match"
	"taaruf/internal/match/metrics"
	sm "taaruf/internal/match/statemachine"
	"taaruf/internal/notify"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
	"taaruf/pkg/platform/sentinel"
)

// MutualResult is the outcome of one side's approval or rejection.
type MutualResult struct {
	MatchID      domain.MatchID
	Status       match.Status
	Step         sm.Step
	BothApproved bool
}

// Coordinator implements the two-sided handshake that activates a match for
// direct communication. Both parties must independently approve; the second
// approval flips the match to active atomically.
type Coordinator struct {
	store    match.Store
	tx       match.TxRunner
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithCoordinatorMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

func WithCoordinatorLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(store match.Store, tx match.TxRunner, notifier Notifier, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:    store,
		tx:       tx,
		notifier: notifier,
		logger:   slog.Default(),
		tracer:   otel.Tracer("taaruf/match"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Approve records the actor's agreement for the (actor, other) pair, creating
// the match record on first interaction. A repeat call by the same actor is an
// idempotent no-op: same returned state, no additional notification.
func (c *Coordinator) Approve(ctx context.Context, actorID, otherID domain.UserID) (MutualResult, error) {
	ctx, span := c.tracer.Start(ctx, "match.ApproveMutual")
	defer span.End()

	if actorID == otherID {
		return MutualResult{}, dErrors.New(dErrors.CodeValidation, "cannot match a participant with themselves")
	}
	key := domain.NewPairKey(actorID, otherID)

	var (
		result     MutualResult
		recipients []recipientEvent
	)
	attempt := func() error {
		recipients = nil
		return c.tx.RunInTx(ctx, key, func(store match.Store) error {
			m, err := store.GetByPairKey(ctx, key)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return c.createFirstApproval(ctx, store, key, actorID, otherID, &result, &recipients)
			case err != nil:
				return err
			}

			if sm.IsTerminal(m.Step) {
				return dErrors.New(dErrors.CodeInvalidTransition, "match is already finalized")
			}

			if m.ViewedBy(actorID) {
				// Idempotent re-approval: no mutation, no extra notification.
				result = MutualResult{
					MatchID:      m.ID,
					Status:       m.Status,
					Step:         m.Step,
					BothApproved: m.RequesterViewed && m.TargetViewed,
				}
				return nil
			}

			m.SetViewed(actorID)
			counterpart := m.Counterpart(actorID)
			if m.ViewedBy(counterpart) {
				if !sm.CanTransition(m.Step, sm.StepChatting) {
					return dErrors.New(dErrors.CodeInvalidTransition,
						"cannot activate match from step "+string(m.Step))
				}
				m.Step = sm.StepChatting
				m.Status = match.StatusApproved
				recipients = []recipientEvent{
					{recipient: m.RequesterID, event: "match_active", message: eventMessage("match_active")},
					{recipient: m.TargetID, event: "match_active", message: eventMessage("match_active")},
				}
			} else {
				recipients = []recipientEvent{
					{recipient: counterpart, event: "counterpart_approved", message: "one side has agreed to proceed"},
				}
			}
			m.UpdatedAt = c.now()

			if err := store.Update(ctx, m); err != nil {
				return translateStore(err)
			}
			result = MutualResult{
				MatchID:      m.ID,
				Status:       m.Status,
				Step:         m.Step,
				BothApproved: m.Step == sm.StepChatting,
			}
			return nil
		})
	}

	err := attempt()
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		// Lost the first-create race to the counterpart's transaction. The
		// row exists now, so one retry records this side's approval instead
		// of surfacing the conflict.
		err = attempt()
	}
	if err != nil {
		c.metrics.RecordDenied(string(dErrors.CodeOf(err)))
		return MutualResult{}, err
	}

	c.emitAll(ctx, result.MatchID, recipients)
	if result.BothApproved && len(recipients) > 0 {
		c.metrics.RecordActivation()
	}
	return result, nil
}

func (c *Coordinator) createFirstApproval(
	ctx context.Context,
	store match.Store,
	key domain.PairKey,
	actorID, otherID domain.UserID,
	result *MutualResult,
	recipients *[]recipientEvent,
) error {
	now := c.now()
	m := &match.Record{
		ID:              domain.NewMatchID(),
		PairKey:         key,
		RequesterID:     actorID,
		TargetID:        otherID,
		Status:          match.StatusPending,
		Step:            sm.StepRequesterApproved,
		RequesterViewed: true,
		GateOpenedBy:    actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := store.Create(ctx, m); err != nil {
		// Pair-key uniqueness lost a race with the counterpart's insert.
		// Surfaced as a conflict so Approve retries against the row that
		// now exists.
		return translateStore(err)
	}
	*result = MutualResult{MatchID: m.ID, Status: m.Status, Step: m.Step}
	*recipients = []recipientEvent{
		{recipient: otherID, event: "counterpart_approved", message: "one side has agreed to proceed"},
	}
	return nil
}

// Reject declines the pair before mutual approval. Rejecting an already
// active match is out of scope here; the block action covers that.
func (c *Coordinator) Reject(ctx context.Context, actorID, otherID domain.UserID) (MutualResult, error) {
	ctx, span := c.tracer.Start(ctx, "match.RejectMutual")
	defer span.End()

	key := domain.NewPairKey(actorID, otherID)

	var (
		result     MutualResult
		recipients []recipientEvent
	)
	err := c.tx.RunInTx(ctx, key, func(store match.Store) error {
		m, err := store.GetByPairKey(ctx, key)
		if err != nil {
			return translateStore(err)
		}
		if m.Status == match.StatusApproved {
			return dErrors.New(dErrors.CodeInvalidTransition, "active matches are ended with block, not reject")
		}
		if !sm.CanTransition(m.Step, sm.StepRejected) {
			return dErrors.New(dErrors.CodeInvalidTransition, "match cannot be rejected at step "+string(m.Step))
		}

		m.Step = sm.StepRejected
		m.Status = match.StatusRejected
		m.UpdatedAt = c.now()
		if err := store.Update(ctx, m); err != nil {
			return translateStore(err)
		}

		result = MutualResult{MatchID: m.ID, Status: m.Status, Step: m.Step}
		recipients = []recipientEvent{
			{recipient: m.RequesterID, event: "match_rejected", message: eventMessage("match_rejected")},
			{recipient: m.TargetID, event: "match_rejected", message: eventMessage("match_rejected")},
		}
		return nil
	})
	if err != nil {
		c.metrics.RecordDenied(string(dErrors.CodeOf(err)))
		return MutualResult{}, err
	}

	c.emitAll(ctx, result.MatchID, recipients)
	return result, nil
}

func (c *Coordinator) emitAll(ctx context.Context, matchID domain.MatchID, recipients []recipientEvent) {
	for _, r := range recipients {
		n := notify.New(r.event, matchID, r.recipient, r.message, c.now())
		if _, err := c.notifier.Emit(ctx, n); err != nil {
			c.logger.Warn("notification emit failed",
				"match_id", matchID.String(),
				"event", r.event,
				"error", err)
		}
	}
}
