package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taaruf/pkg/domain"
)

// PostgresStore persists notifications; dedupe relies on a unique index over
// dedupe_key and ON CONFLICT DO NOTHING.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, n Notification) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, match_id, event_type, message, dedupe_key, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (dedupe_key) DO NOTHING`,
		n.ID.String(), n.RecipientID.String(), n.MatchID.String(),
		n.EventType, n.Message, n.DedupeKey, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("notification rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID domain.UserID) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, match_id, event_type, message, dedupe_key, created_at
		FROM notifications WHERE recipient_id = $1 ORDER BY created_at`, recipientID.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var (
			n                    Notification
			id, recipient, match string
			createdAt            time.Time
		)
		if err := rows.Scan(&id, &recipient, &match, &n.EventType, &n.Message, &n.DedupeKey, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if n.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("stored notification id: %w", err)
		}
		if n.RecipientID, err = domain.ParseUserID(recipient); err != nil {
			return nil, fmt.Errorf("stored recipient id: %w", err)
		}
		if n.MatchID, err = domain.ParseMatchID(match); err != nil {
			return nil, fmt.Errorf("stored match id: %w", err)
		}
		n.CreatedAt = createdAt
		out = append(out, n)
	}
	return out, rows.Err()
}
