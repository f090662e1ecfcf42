package abuse

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"taaruf/internal/abuse/metrics"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
)

// Class groups decision endpoints for rate-limit purposes so a burst on one
// class cannot starve another.
type Class string

const (
	ClassDecision Class = "decision"
	ClassMutual   Class = "mutual"
	ClassScoring  Class = "scoring"
)

// Policy carries every guard knob. Zero values disable the corresponding
// check, which keeps tests focused.
type Policy struct {
	// FailOpen controls degradation on counter store errors: true lets the
	// decision through, false rejects it.
	FailOpen bool

	ActorLimit  int
	ActorWindow time.Duration
	AddrLimit   int
	AddrWindow  time.Duration

	PairCooldown time.Duration

	BurstThreshold int
	BurstWindow    time.Duration

	IdempotencyTTL time.Duration
}

// Decision is one guarded attempt.
type Decision struct {
	ActorID  domain.UserID
	TargetID domain.UserID
	Class    Class
	// SourceAddr is the caller's network address, second keying dimension.
	SourceAddr string
	// IdempotencyKey is the caller-supplied opaque token, empty when absent.
	IdempotencyKey string
}

// Guard runs every abuse check in order: penalty freeze, idempotency key,
// pair cooldown, actor window, address window, burst escalation.
type Guard struct {
	counters  CounterStore
	penalties PenaltyStore
	policy    Policy
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Guard)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func NewGuard(counters CounterStore, penalties PenaltyStore, policy Policy, opts ...Option) *Guard {
	g := &Guard{
		counters:  counters,
		penalties: penalties,
		policy:    policy,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check either admits the decision (nil) or rejects it with RATE_LIMITED or
// IDEMPOTENT_DUPLICATE. Counter store failures degrade per policy but never
// return an internal error to the caller.
func (g *Guard) Check(ctx context.Context, d Decision) error {
	now := g.now()

	// Freeze check comes first so frozen users are rejected before any
	// counter is consumed.
	state, err := g.penalties.Get(ctx, d.ActorID)
	if err != nil {
		if degraded := g.degrade(err); degraded != nil {
			return degraded
		}
	} else if state.Frozen(now) {
		g.metrics.RecordRejection("frozen")
		return dErrors.New(dErrors.CodeRateLimited, "account temporarily frozen until "+state.FreezeUntil.UTC().Format(time.RFC3339))
	}

	if d.IdempotencyKey != "" && g.policy.IdempotencyTTL > 0 {
		fresh, err := g.counters.SetNX(ctx, idemKey(d.ActorID, d.IdempotencyKey), g.policy.IdempotencyTTL)
		if err != nil {
			if degraded := g.degrade(err); degraded != nil {
				return degraded
			}
		} else if !fresh {
			g.metrics.RecordRejection("idempotent_duplicate")
			return dErrors.New(dErrors.CodeIdempotentDuplicate, "request with this idempotency key was already processed")
		}
	}

	if g.policy.PairCooldown > 0 && !d.TargetID.IsZero() {
		fresh, err := g.counters.SetNX(ctx, cooldownKey(d.ActorID, d.TargetID), g.policy.PairCooldown)
		if err != nil {
			if degraded := g.degrade(err); degraded != nil {
				return degraded
			}
		} else if !fresh {
			g.metrics.RecordRejection("pair_cooldown")
			return dErrors.New(dErrors.CodeRateLimited, "repeat decision for the same pair, slow down")
		}
	}

	if g.policy.ActorLimit > 0 {
		if err := g.window(ctx, actorKey(d.ActorID, d.Class), g.policy.ActorLimit, g.policy.ActorWindow, "actor_window"); err != nil {
			return err
		}
	}
	if g.policy.AddrLimit > 0 && d.SourceAddr != "" {
		if err := g.window(ctx, addrKey(d.SourceAddr, d.Class), g.policy.AddrLimit, g.policy.AddrWindow, "addr_window"); err != nil {
			return err
		}
	}

	if g.policy.BurstThreshold > 0 {
		if err := g.checkBurst(ctx, d.ActorID, state, now); err != nil {
			return err
		}
	}
	return nil
}

// window enforces one sliding counter: the Nth request in the window passes,
// the (N+1)th is rejected.
func (g *Guard) window(ctx context.Context, key string, limit int, window time.Duration, reason string) error {
	n, err := g.counters.IncrementWithExpiry(ctx, key, window)
	if err != nil {
		return g.degrade(err)
	}
	if n > int64(limit) {
		g.metrics.RecordRejection(reason)
		return dErrors.New(dErrors.CodeRateLimited, "too many requests")
	}
	return nil
}

// checkBurst escalates the penalty level when the rolling burst counter
// crosses the threshold, imposing a freeze that grows with the level.
func (g *Guard) checkBurst(ctx context.Context, actorID domain.UserID, state PenaltyState, now time.Time) error {
	n, err := g.counters.IncrementWithExpiry(ctx, burstKey(actorID), g.policy.BurstWindow)
	if err != nil {
		return g.degrade(err)
	}
	if n <= int64(g.policy.BurstThreshold) {
		return nil
	}

	state.UserID = actorID
	state.Level++
	state.FreezeUntil = now.Add(FreezeFor(state.Level))
	if err := g.penalties.Save(ctx, state); err != nil {
		g.logger.Error("penalty save failed", "user_id", actorID.String(), "error", err)
	}
	g.metrics.RecordFreeze(strconv.Itoa(state.Level))
	g.metrics.RecordRejection("burst")
	g.logger.Warn("burst threshold breached, freezing account",
		"user_id", actorID.String(),
		"level", state.Level,
		"freeze_until", state.FreezeUntil)
	return dErrors.New(dErrors.CodeRateLimited, "too many requests, account frozen")
}

// degrade applies the configured failure policy to a counter store error:
// fail-open absorbs it, fail-closed turns it into a rejection. Either way the
// match record state is untouched.
func (g *Guard) degrade(err error) error {
	g.metrics.RecordStoreFailure()
	g.logger.Error("counter store failure", "error", err, "fail_open", g.policy.FailOpen)
	if g.policy.FailOpen {
		return nil
	}
	return dErrors.Wrap(err, dErrors.CodeRateLimited, "abuse guard unavailable")
}

func actorKey(actor domain.UserID, class Class) string {
	return "rl:actor:" + string(class) + ":" + actor.String()
}

func addrKey(addr string, class Class) string {
	return "rl:addr:" + string(class) + ":" + addr
}

func cooldownKey(actor, target domain.UserID) string {
	return "cooldown:" + actor.String() + ":" + target.String()
}

func burstKey(actor domain.UserID) string {
	return "burst:" + actor.String()
}

func idemKey(actor domain.UserID, key string) string {
	return "idem:" + actor.String() + ":" + key
}
