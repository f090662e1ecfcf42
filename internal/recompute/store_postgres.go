package recompute

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taaruf/pkg/domain"
)

// PostgresTaskStore keeps the outbox in the recompute_outbox table. Leasing
// uses FOR UPDATE SKIP LOCKED so multiple workers never double-process a
// visible task.
type PostgresTaskStore struct {
	db *sql.DB
}

func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

func (s *PostgresTaskStore) Enqueue(ctx context.Context, userID domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recompute_outbox (user_id, enqueued_at, attempts)
		VALUES ($1, now(), 0)
		ON CONFLICT (user_id) DO NOTHING`, userID.String())
	if err != nil {
		return fmt.Errorf("enqueue recompute: %w", err)
	}
	return nil
}

func (s *PostgresTaskStore) Lease(ctx context.Context, limit int, leaseFor time.Duration) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE recompute_outbox SET
			leased_until = now() + $2::interval,
			attempts = attempts + 1
		WHERE user_id IN (
			SELECT user_id FROM recompute_outbox
			WHERE leased_until IS NULL OR leased_until < now()
			ORDER BY enqueued_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING user_id, enqueued_at, attempts`,
		limit, leaseFor.String())
	if err != nil {
		return nil, fmt.Errorf("lease recompute tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var (
			raw        string
			enqueuedAt time.Time
			attempts   int
		)
		if err := rows.Scan(&raw, &enqueuedAt, &attempts); err != nil {
			return nil, fmt.Errorf("scan recompute task: %w", err)
		}
		id, err := domain.ParseUserID(raw)
		if err != nil {
			continue
		}
		tasks = append(tasks, Task{UserID: id, EnqueuedAt: enqueuedAt, Attempts: attempts})
	}
	return tasks, rows.Err()
}

func (s *PostgresTaskStore) Ack(ctx context.Context, userID domain.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM recompute_outbox WHERE user_id = $1`, userID.String())
	if err != nil {
		return fmt.Errorf("ack recompute: %w", err)
	}
	return nil
}

// PostgresCursorStore stores the sweep cursor in a single named row so
// restarts resume where the previous sweep stopped.
type PostgresCursorStore struct {
	db   *sql.DB
	name string
}

func NewPostgresCursorStore(db *sql.DB, name string) *PostgresCursorStore {
	return &PostgresCursorStore{db: db, name: name}
}

func (s *PostgresCursorStore) Get(ctx context.Context) (string, error) {
	var cursor string
	err := s.db.QueryRowContext(ctx, `
		SELECT cursor FROM recompute_cursors WHERE name = $1`, s.name).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get sweep cursor: %w", err)
	}
	return cursor, nil
}

func (s *PostgresCursorStore) Set(ctx context.Context, cursor string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recompute_cursors (name, cursor, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			updated_at = EXCLUDED.updated_at`, s.name, cursor)
	if err != nil {
		return fmt.Errorf("set sweep cursor: %w", err)
	}
	return nil
}
