package abuse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taaruf/pkg/domain"
)

// PostgresPenaltyStore persists penalty state so freezes survive restarts and
// are visible across instances.
type PostgresPenaltyStore struct {
	db *sql.DB
}

func NewPostgresPenaltyStore(db *sql.DB) *PostgresPenaltyStore {
	return &PostgresPenaltyStore{db: db}
}

func (s *PostgresPenaltyStore) Get(ctx context.Context, userID domain.UserID) (PenaltyState, error) {
	var (
		level       int
		freezeUntil time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT level, freeze_until FROM penalties WHERE user_id = $1`,
		userID.String()).Scan(&level, &freezeUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PenaltyState{UserID: userID}, nil
		}
		return PenaltyState{}, fmt.Errorf("get penalty: %w", err)
	}
	return PenaltyState{UserID: userID, Level: level, FreezeUntil: freezeUntil}, nil
}

func (s *PostgresPenaltyStore) Save(ctx context.Context, state PenaltyState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO penalties (user_id, level, freeze_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			level = EXCLUDED.level,
			freeze_until = EXCLUDED.freeze_until`,
		state.UserID.String(), state.Level, state.FreezeUntil)
	if err != nil {
		return fmt.Errorf("save penalty: %w", err)
	}
	return nil
}
