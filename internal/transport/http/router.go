// Package httptransport is the thin HTTP layer. Handlers decode, authorize
// through the abuse guard, delegate to domain services, and translate domain
// errors; business logic stays out.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taaruf/internal/abuse"
	"taaruf/internal/eligibility"
	"taaruf/internal/match"
	"taaruf/internal/match/service"
	"taaruf/internal/platform/metrics"
	"taaruf/internal/platform/middleware"
	"taaruf/internal/scoring"
	"taaruf/pkg/domain"
)

// ActionService dispatches named actions against a match.
type ActionService interface {
	ApplyAction(ctx context.Context, matchID domain.MatchID, actorID domain.UserID, action string) (service.ActionResult, error)
}

// MutualService runs the two-sided approval handshake.
type MutualService interface {
	Approve(ctx context.Context, actorID, otherID domain.UserID) (service.MutualResult, error)
	Reject(ctx context.Context, actorID, otherID domain.UserID) (service.MutualResult, error)
}

// ScoreService evaluates pair compatibility and single-party readiness.
type ScoreService interface {
	Pair(ctx context.Context, a, b domain.UserID) (scoring.Result, error)
	UserReadiness(ctx context.Context, userID domain.UserID) (float64, error)
}

// Guard is the abuse pre-filter applied to every decision endpoint.
type Guard interface {
	Check(ctx context.Context, d abuse.Decision) error
}

// Handler carries the wired services for all routes.
type Handler struct {
	actions ActionService
	mutual  MutualService
	scores  ScoreService
	guard   Guard
	matches match.Store
	checker *eligibility.Checker

	validator middleware.JWTValidator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
}

type HandlerOption func(*Handler)

// WithEligibility installs the pair pre-filter; without it mutual approvals
// skip attribute gating.
func WithEligibility(c *eligibility.Checker) HandlerOption {
	return func(h *Handler) { h.checker = c }
}

func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
		h.gatherer = gatherer
	}
}

func NewHandler(
	actions ActionService,
	mutual MutualService,
	scores ScoreService,
	guard Guard,
	matches match.Store,
	validator middleware.JWTValidator,
	logger *slog.Logger,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		actions:   actions,
		mutual:    mutual,
		scores:    scores,
		guard:     guard,
		matches:   matches,
		validator: validator,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter assembles the full route tree: open health and metrics endpoints
// plus the authenticated API.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	if h.metrics != nil {
		r.Use(middleware.Latency(h.metrics))
	}

	r.Get("/healthz", h.handleHealthz)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.Post("/matches/{id}/actions/{action}", h.handleAction)
		r.Post("/matches/mutual/approve", h.handleMutualApprove)
		r.Post("/matches/mutual/reject", h.handleMutualReject)
		r.Get("/matches/{id}", h.handleGetMatch)

		r.Post("/compatibility/score", h.handleScore)
		r.Get("/users/{id}/readiness", h.handleReadiness)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
