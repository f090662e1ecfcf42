package notify

import (
	"context"

	"taaruf/pkg/domain"
)

// Store persists notifications. CreateIfAbsent is keyed on the dedupe key:
// created reports whether a new row was written (false on replay).
type Store interface {
	CreateIfAbsent(ctx context.Context, n Notification) (created bool, err error)
	ListByRecipient(ctx context.Context, recipientID domain.UserID) ([]Notification, error)
}
