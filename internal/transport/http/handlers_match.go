package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taaruf/internal/abuse"
	"taaruf/internal/match/service"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
	"taaruf/pkg/platform/sentinel"
)

type actionResponse struct {
	MatchID string `json:"match_id"`
	Status  string `json:"status"`
	Step    string `json:"step"`
}

type mutualRequest struct {
	TargetUserID string `json:"target_user_id"`
}

type mutualResponse struct {
	MatchID      string `json:"match_id"`
	Status       string `json:"status"`
	Step         string `json:"step"`
	BothApproved bool   `json:"both_approved"`
}

type matchResponse struct {
	MatchID     string         `json:"match_id"`
	RequesterID string         `json:"requester_id"`
	TargetID    string         `json:"target_id"`
	Status      string         `json:"status"`
	Step        string         `json:"step"`
	Scores      *scoreResponse `json:"scores,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	matchID, err := domain.ParseMatchID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	action := chi.URLParam(r, "action")

	// Resolve the counterpart so the pair cooldown covers gate decisions
	// too. A missing match leaves it zero; ApplyAction reports not found
	// after the guard has run.
	var target domain.UserID
	if m, err := h.matches.Get(ctx, matchID); err == nil && m.Participant(actor) {
		target = m.Counterpart(actor)
	}

	if err := h.guard.Check(ctx, abuse.Decision{
		ActorID:        actor,
		TargetID:       target,
		Class:          abuse.ClassDecision,
		SourceAddr:     clientAddr(r),
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.actions.ApplyAction(ctx, matchID, actor, action)
	if err != nil {
		h.logger.WarnContext(ctx, "action rejected",
			"match_id", matchID.String(),
			"action", action,
			"error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{
		MatchID: res.ID.String(),
		Status:  string(res.Status),
		Step:    string(res.Step),
	})
}

func (h *Handler) handleMutualApprove(w http.ResponseWriter, r *http.Request) {
	h.handleMutual(w, r, h.mutual.Approve)
}

func (h *Handler) handleMutualReject(w http.ResponseWriter, r *http.Request) {
	h.handleMutual(w, r, h.mutual.Reject)
}

func (h *Handler) handleMutual(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, actorID, otherID domain.UserID) (service.MutualResult, error)) {
	ctx := r.Context()
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req mutualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	target, err := domain.ParseUserID(req.TargetUserID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.guard.Check(ctx, abuse.Decision{
		ActorID:        actor,
		TargetID:       target,
		Class:          abuse.ClassMutual,
		SourceAddr:     clientAddr(r),
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeError(w, err)
		return
	}

	if h.checker != nil {
		if err := h.checker.Check(ctx, actor, target); err != nil {
			writeError(w, err)
			return
		}
	}

	res, err := decide(ctx, actor, target)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mutualResponse{
		MatchID:      res.MatchID.String(),
		Status:       string(res.Status),
		Step:         string(res.Step),
		BothApproved: res.BothApproved,
	})
}

func (h *Handler) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	matchID, err := domain.ParseMatchID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.matches.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, dErrors.New(dErrors.CodeNotFound, "match not found"))
			return
		}
		writeError(w, err)
		return
	}
	if !m.Participant(actor) {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "actor is not a participant of this match"))
		return
	}

	var scores *scoreResponse
	if m.Scores != nil {
		s := toScoreResponse(*m.Scores)
		scores = &s
	}
	writeJSON(w, http.StatusOK, matchResponse{
		MatchID:     m.ID.String(),
		RequesterID: m.RequesterID.String(),
		TargetID:    m.TargetID.String(),
		Status:      string(m.Status),
		Step:        string(m.Step),
		Scores:      scores,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	})
}
