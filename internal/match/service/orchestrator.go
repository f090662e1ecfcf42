// Package service contains the match progression services: the orchestrator
// dispatching named actions and the mutual-approval coordinator. Both follow
// the same shape: pure validation inside one transaction, then deduplicated
// notification emission as a post-commit side effect.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"taaruf/internal/match"
	"taaruf/internal/match/metrics"
	sm "taaruf/internal/match/statemachine"
	"taaruf/internal/notify"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
	"taaruf/pkg/platform/sentinel"
)

// Notifier is the notification sink consumed by both services.
type Notifier interface {
	Emit(ctx context.Context, n notify.Notification) (bool, error)
}

// ActionResult is the caller-visible outcome of a dispatched action.
type ActionResult struct {
	ID     domain.MatchID
	Status match.Status
	Step   sm.Step
}

// Orchestrator applies named actions against a specific match: authorization,
// transition legality, atomic persistence, notification emission.
type Orchestrator struct {
	store    match.Store
	tx       match.TxRunner
	notifier Notifier
	mutual   *Coordinator
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type OrchestratorOption func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(store match.Store, tx match.TxRunner, notifier Notifier, mutual *Coordinator, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:    store,
		tx:       tx,
		notifier: notifier,
		mutual:   mutual,
		logger:   slog.Default(),
		tracer:   otel.Tracer("taaruf/match"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ApplyAction is the single entrypoint for match actions. The read-validate-
// write cycle runs inside one transaction keyed on the match's pair key, so
// near-simultaneous requests for the same match are linearized.
func (o *Orchestrator) ApplyAction(ctx context.Context, matchID domain.MatchID, actorID domain.UserID, actionName string) (ActionResult, error) {
	ctx, span := o.tracer.Start(ctx, "match.ApplyAction",
		trace.WithAttributes(attribute.String("match.action", actionName)))
	defer span.End()

	spec, err := match.Resolve(actionName)
	if err != nil {
		o.metrics.RecordDenied(string(dErrors.CodeOf(err)))
		return ActionResult{}, err
	}

	// The like gesture belongs to the mutual-approval handshake; hand it off.
	if spec.Action == match.ActionLike {
		return o.applyLike(ctx, matchID, actorID)
	}

	// Pre-read outside the transaction to learn the pair key; it is immutable
	// for the life of the record so the transaction domain is stable.
	preread, err := o.store.Get(ctx, matchID)
	if err != nil {
		return ActionResult{}, o.deny(translateStore(err))
	}

	var (
		result     ActionResult
		recipients []recipientEvent
	)
	err = o.tx.RunInTx(ctx, preread.PairKey, func(store match.Store) error {
		m, err := store.Get(ctx, matchID)
		if err != nil {
			return translateStore(err)
		}

		if !m.Participant(actorID) {
			return dErrors.New(dErrors.CodeForbidden, "actor is not a participant of this match")
		}
		if spec.CounterpartOnly && actorID == m.GateOpenedBy {
			return dErrors.New(dErrors.CodeForbidden, "only the receiving party may decide this gate")
		}

		to := spec.To
		from := spec.From
		if from == "" {
			// Dynamic origin (block, request_profile): legality comes from
			// the allow-list alone.
			from = m.Step
		}
		if m.Step != from || !sm.CanTransition(m.Step, to) {
			return dErrors.New(dErrors.CodeInvalidTransition,
				"action "+string(spec.Action)+" is not legal at step "+string(m.Step))
		}

		m.Step = to
		m.Status = match.StatusFor(to)
		if spec.OpensGate {
			m.GateOpenedBy = actorID
			m.RequesterViewed = false
			m.TargetViewed = false
			m.SetViewed(actorID)
		} else {
			m.SetViewed(actorID)
		}
		m.UpdatedAt = o.now()

		if err := store.Update(ctx, m); err != nil {
			return translateStore(err)
		}

		result = ActionResult{ID: m.ID, Status: m.Status, Step: m.Step}
		recipients = o.recipientsFor(spec, m, actorID)
		return nil
	})
	if err != nil {
		return ActionResult{}, o.deny(err)
	}

	o.emit(ctx, result.ID, recipients)
	o.metrics.RecordAction(string(spec.Action))
	return result, nil
}

func (o *Orchestrator) applyLike(ctx context.Context, matchID domain.MatchID, actorID domain.UserID) (ActionResult, error) {
	m, err := o.store.Get(ctx, matchID)
	if err != nil {
		return ActionResult{}, o.deny(translateStore(err))
	}
	if !m.Participant(actorID) {
		return ActionResult{}, o.deny(dErrors.New(dErrors.CodeForbidden, "actor is not a participant of this match"))
	}
	res, err := o.mutual.Approve(ctx, actorID, m.Counterpart(actorID))
	if err != nil {
		return ActionResult{}, o.deny(err)
	}
	o.metrics.RecordAction(string(match.ActionLike))
	return ActionResult{ID: res.MatchID, Status: res.Status, Step: res.Step}, nil
}

type recipientEvent struct {
	recipient domain.UserID
	event     string
	message   string
}

// recipientsFor decides who hears about a successful action. Rejections and
// activation reach both parties; everything else informs the counterpart of
// the actor.
func (o *Orchestrator) recipientsFor(spec match.Spec, m *match.Record, actorID domain.UserID) []recipientEvent {
	message := eventMessage(spec.Event)
	switch spec.Event {
	case "match_rejected", "match_active", "match_closed":
		return []recipientEvent{
			{recipient: m.RequesterID, event: spec.Event, message: message},
			{recipient: m.TargetID, event: spec.Event, message: message},
		}
	default:
		return []recipientEvent{
			{recipient: m.Counterpart(actorID), event: spec.Event, message: message},
		}
	}
}

func eventMessage(event string) string {
	switch event {
	case "profile_requested":
		return "the other party asked to see your profile"
	case "profile_approved":
		return "your profile request was approved"
	case "photo_requested":
		return "the other party asked to see your photo"
	case "photo_approved":
		return "your photo request was approved"
	case "full_biodata_requested":
		return "the other party asked for your full biodata"
	case "full_biodata_approved":
		return "your biodata request was approved"
	case "ai_analysis_started":
		return "compatibility analysis has started"
	case "ai_recommendation_ready":
		return "your compatibility recommendation is ready"
	case "match_active":
		return "your match is active, you can start chatting"
	case "meeting_scheduled":
		return "a meeting has been scheduled"
	case "marriage_intent":
		return "the other party declared marriage intent"
	case "match_closed":
		return "the match has been closed"
	case "match_rejected":
		return "the match was declined"
	case "match_blocked":
		return "the other party ended this match"
	default:
		return event
	}
}

// emit writes one deduplicated notification per recipient. Emission happens
// after the transaction committed; the dedupe key makes retries safe.
func (o *Orchestrator) emit(ctx context.Context, matchID domain.MatchID, recipients []recipientEvent) {
	for _, r := range recipients {
		n := notify.New(r.event, matchID, r.recipient, r.message, o.now())
		if _, err := o.notifier.Emit(ctx, n); err != nil {
			o.logger.Warn("notification emit failed",
				"match_id", matchID.String(),
				"event", r.event,
				"error", err)
		}
	}
}

func (o *Orchestrator) deny(err error) error {
	o.metrics.RecordDenied(string(dErrors.CodeOf(err)))
	return err
}

// translateStore converts storage sentinels into domain errors.
func translateStore(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "match not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "match already exists for this pair")
	default:
		return err
	}
}
