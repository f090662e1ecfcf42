package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"taaruf/internal/match/statemachine"
	"taaruf/internal/scoring"
	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

// querier abstracts *sql.DB and *sql.Tx so the same store serves both plain
// reads and transactional mutations.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists match records in the matches table. When constructed
// over a transaction (NewPostgresTx), reads take a row lock so the
// read-validate-write cycle is atomic.
type PostgresStore struct {
	q         querier
	forUpdate bool
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

// NewPostgresTx builds a store view over an open transaction. Reads lock the
// row (SELECT ... FOR UPDATE) to linearize concurrent transitions per match.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{q: tx, forUpdate: true}
}

const matchColumns = `
	id, pair_key, requester_id, target_id, status, step,
	requester_viewed, target_viewed, gate_opened_by,
	final_score, compatibility, conflict_risk, emotional_stability,
	life_alignment, marriage_stability, score_version, score_computed_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	scores := scoreColumns(record)
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		record.ID.String(), record.PairKey.String(),
		record.RequesterID.String(), record.TargetID.String(),
		string(record.Status), string(record.Step),
		record.RequesterViewed, record.TargetViewed, record.GateOpenedBy.String(),
		scores.final, scores.compatibility, scores.conflictRisk,
		scores.emotionalStability, scores.lifeAlignment, scores.marriageStability,
		record.ScoreVersion, scores.computedAt,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.MatchID) (*Record, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	if s.forUpdate {
		query += " FOR UPDATE"
	}
	return s.scanOne(s.q.QueryRowContext(ctx, query, id.String()))
}

func (s *PostgresStore) GetByPairKey(ctx context.Context, key domain.PairKey) (*Record, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE pair_key = $1`
	if s.forUpdate {
		query += " FOR UPDATE"
	}
	return s.scanOne(s.q.QueryRowContext(ctx, query, key.String()))
}

func (s *PostgresStore) Update(ctx context.Context, record *Record) error {
	scores := scoreColumns(record)
	res, err := s.q.ExecContext(ctx, `
		UPDATE matches SET
			status = $2, step = $3,
			requester_viewed = $4, target_viewed = $5, gate_opened_by = $6,
			final_score = $7, compatibility = $8, conflict_risk = $9,
			emotional_stability = $10, life_alignment = $11, marriage_stability = $12,
			score_version = $13, score_computed_at = $14,
			updated_at = $15
		WHERE id = $1`,
		record.ID.String(),
		string(record.Status), string(record.Step),
		record.RequesterViewed, record.TargetViewed, record.GateOpenedBy.String(),
		scores.final, scores.compatibility, scores.conflictRisk,
		scores.emotionalStability, scores.lifeAlignment, scores.marriageStability,
		record.ScoreVersion, scores.computedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type nullableScores struct {
	final, compatibility, conflictRisk sql.NullFloat64
	emotionalStability, lifeAlignment  sql.NullFloat64
	marriageStability                  sql.NullFloat64
	computedAt                         sql.NullTime
}

func scoreColumns(record *Record) nullableScores {
	if record.Scores == nil {
		return nullableScores{}
	}
	r := record.Scores
	return nullableScores{
		final:              sql.NullFloat64{Float64: r.FinalScore, Valid: true},
		compatibility:      sql.NullFloat64{Float64: r.Compatibility, Valid: true},
		conflictRisk:       sql.NullFloat64{Float64: r.ConflictRisk, Valid: true},
		emotionalStability: sql.NullFloat64{Float64: r.EmotionalStability, Valid: true},
		lifeAlignment:      sql.NullFloat64{Float64: r.LifeAlignment, Valid: true},
		marriageStability:  sql.NullFloat64{Float64: r.MarriageStability, Valid: true},
		computedAt:         sql.NullTime{Time: r.ComputedAt, Valid: true},
	}
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Record, error) {
	var (
		record                         Record
		id, pairKey, requester, target string
		status, step, gateOpenedBy     string
		scores                         nullableScores
		scoreVersion                   sql.NullInt64
		createdAt, updatedAt           time.Time
	)
	err := row.Scan(
		&id, &pairKey, &requester, &target, &status, &step,
		&record.RequesterViewed, &record.TargetViewed, &gateOpenedBy,
		&scores.final, &scores.compatibility, &scores.conflictRisk,
		&scores.emotionalStability, &scores.lifeAlignment, &scores.marriageStability,
		&scoreVersion, &scores.computedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}

	if record.ID, err = domain.ParseMatchID(id); err != nil {
		return nil, fmt.Errorf("stored match id: %w", err)
	}
	if record.RequesterID, err = domain.ParseUserID(requester); err != nil {
		return nil, fmt.Errorf("stored requester id: %w", err)
	}
	if record.TargetID, err = domain.ParseUserID(target); err != nil {
		return nil, fmt.Errorf("stored target id: %w", err)
	}
	if gate, err := domain.ParseUserID(gateOpenedBy); err == nil {
		record.GateOpenedBy = gate
	}
	record.PairKey = domain.PairKey(pairKey)
	record.Status = Status(status)
	record.Step = statemachine.Step(step)
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt
	record.ScoreVersion = int(scoreVersion.Int64)

	if scores.final.Valid {
		record.Scores = &scoring.Result{
			FinalScore:         scores.final.Float64,
			Compatibility:      scores.compatibility.Float64,
			ConflictRisk:       scores.conflictRisk.Float64,
			EmotionalStability: scores.emotionalStability.Float64,
			LifeAlignment:      scores.lifeAlignment.Float64,
			MarriageStability:  scores.marriageStability.Float64,
			Version:            record.ScoreVersion,
			ComputedAt:         scores.computedAt.Time,
		}
	}
	return &record, nil
}
