package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taaruf/internal/abuse"
	"taaruf/internal/scoring"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
)

type scoreRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

type scoreResponse struct {
	FinalScore         float64   `json:"final_score"`
	Compatibility      float64   `json:"compatibility"`
	ConflictRisk       float64   `json:"conflict_risk"`
	EmotionalStability float64   `json:"emotional_stability"`
	LifeAlignment      float64   `json:"life_alignment"`
	MarriageStability  float64   `json:"marriage_stability"`
	Version            int       `json:"version"`
	ComputedAt         time.Time `json:"computed_at"`
}

type readinessResponse struct {
	UserID    string  `json:"user_id"`
	Readiness float64 `json:"readiness"`
	Version   int     `json:"version"`
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	a, err := domain.ParseUserID(req.UserA)
	if err != nil {
		writeError(w, err)
		return
	}
	b, err := domain.ParseUserID(req.UserB)
	if err != nil {
		writeError(w, err)
		return
	}
	if a == b {
		writeError(w, dErrors.New(dErrors.CodeValidation, "cannot score a participant against themselves"))
		return
	}

	if err := h.guard.Check(ctx, abuse.Decision{
		ActorID:        actor,
		Class:          abuse.ClassScoring,
		SourceAddr:     clientAddr(r),
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.scores.Pair(ctx, a, b)
	if err != nil {
		h.logger.ErrorContext(ctx, "pair scoring failed", "error", err)
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "pair scoring failed"))
		return
	}

	writeJSON(w, http.StatusOK, toScoreResponse(result))
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := domain.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	// Readiness is personal; only the participant may read their own index.
	if actor != userID {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "readiness is only visible to its owner"))
		return
	}

	readiness, err := h.scores.UserReadiness(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "readiness computation failed", "error", err)
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "readiness computation failed"))
		return
	}

	writeJSON(w, http.StatusOK, readinessResponse{
		UserID:    userID.String(),
		Readiness: readiness,
		Version:   scoring.EngineVersion,
	})
}

func toScoreResponse(r scoring.Result) scoreResponse {
	return scoreResponse{
		FinalScore:         r.FinalScore,
		Compatibility:      r.Compatibility,
		ConflictRisk:       r.ConflictRisk,
		EmotionalStability: r.EmotionalStability,
		LifeAlignment:      r.LifeAlignment,
		MarriageStability:  r.MarriageStability,
		Version:            r.Version,
		ComputedAt:         r.ComputedAt,
	}
}
