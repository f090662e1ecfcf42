// Package notify persists per-recipient notifications with dedupe keys and
// optionally fans events out to Kafka. Delivery transport is out of scope;
// this is the sink the core writes to.
package notify

import (
	"time"

	"github.com/google/uuid"

	"taaruf/pkg/domain"
)

// Notification is one row for one recipient. The DedupeKey guarantees that
// repeated triggers of the same logical event never create duplicate rows.
type Notification struct {
	ID          uuid.UUID
	RecipientID domain.UserID
	MatchID     domain.MatchID
	EventType   string
	Message     string
	DedupeKey   string
	CreatedAt   time.Time
}

// DedupeKey derives the deterministic key for one logical event delivered to
// one recipient.
func DedupeKey(eventType string, matchID domain.MatchID, recipientID domain.UserID) string {
	return eventType + ":" + matchID.String() + ":" + recipientID.String()
}

// New builds a notification with its dedupe key filled in.
func New(eventType string, matchID domain.MatchID, recipientID domain.UserID, message string, now time.Time) Notification {
	return Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		MatchID:     matchID,
		EventType:   eventType,
		Message:     message,
		DedupeKey:   DedupeKey(eventType, matchID, recipientID),
		CreatedAt:   now,
	}
}
