// Package domain holds the typed identifiers shared across services. Distinct
// types keep a user id from ever being passed where a match id is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "taaruf/pkg/domain-errors"
)

type (
	// UserID identifies a participant.
	UserID uuid.UUID
	// MatchID identifies a match record.
	MatchID uuid.UUID
)

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id MatchID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id MatchID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewMatchID returns a fresh random match id.
func NewMatchID() MatchID { return MatchID(uuid.New()) }

// ParseUserID validates and converts a raw string into a UserID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user id")
	return UserID(u), err
}

// ParseMatchID validates and converts a raw string into a MatchID.
func ParseMatchID(raw string) (MatchID, error) {
	u, err := parseUUID(raw, "match id")
	return MatchID(u), err
}

func parseUUID(raw, label string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be empty")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, label+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be the nil UUID")
	}
	return u, nil
}

// PairKey is the canonical identifier for an unordered pair of participants.
// Exactly one match record may exist per pair key.
type PairKey string

// NewPairKey sorts the two participant ids so (a,b) and (b,a) collapse to the
// same key.
func NewPairKey(a, b UserID) PairKey {
	x, y := a.String(), b.String()
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return PairKey(x + ":" + y)
}

func (k PairKey) String() string { return string(k) }
