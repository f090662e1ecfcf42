// Package match holds the authoritative match record and its stores. All
// mutation goes through the orchestrator and coordinator services; the record
// itself is a plain data carrier.
package match

import (
	"time"

	"taaruf/internal/match/statemachine"
	"taaruf/internal/scoring"
	"taaruf/pkg/domain"
)

// Status is the coarse outcome of a match, beside the finer-grained step.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusBlocked  Status = "blocked"
)

// Record is the single source of truth for one pair's progression. At most
// one record exists per unordered pair (PairKey uniqueness). Records are never
// physically deleted by the core.
type Record struct {
	ID          domain.MatchID
	PairKey     domain.PairKey
	RequesterID domain.UserID
	TargetID    domain.UserID

	Status Status
	Step   statemachine.Step

	// Per-party approval flags for the current gate.
	RequesterViewed bool
	TargetViewed    bool

	// GateOpenedBy is the party that opened the currently pending gate; the
	// counterpart is the only one allowed to approve or reject it.
	GateOpenedBy domain.UserID

	// Scores is the last computed pair evaluation, if any. ScoreVersion
	// duplicates Scores.Version for staleness checks without loading the
	// full result.
	Scores       *scoring.Result
	ScoreVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant reports whether the user is one of the two parties.
func (r *Record) Participant(userID domain.UserID) bool {
	return r.RequesterID == userID || r.TargetID == userID
}

// Counterpart returns the other party. Callers must have checked Participant.
func (r *Record) Counterpart(userID domain.UserID) domain.UserID {
	if r.RequesterID == userID {
		return r.TargetID
	}
	return r.RequesterID
}

// ViewedBy reports whether the given party has recorded approval for the
// current gate.
func (r *Record) ViewedBy(userID domain.UserID) bool {
	if r.RequesterID == userID {
		return r.RequesterViewed
	}
	return r.TargetViewed
}

// SetViewed records the given party's approval flag for the current gate.
func (r *Record) SetViewed(userID domain.UserID) {
	if r.RequesterID == userID {
		r.RequesterViewed = true
		return
	}
	r.TargetViewed = true
}
