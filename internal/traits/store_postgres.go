package traits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taaruf/pkg/domain"
	"taaruf/pkg/platform/sentinel"
)

// PostgresVectorStore persists stamped vectors in the trait_vectors table,
// one row per user, replaced wholesale on recomputation.
type PostgresVectorStore struct {
	db *sql.DB
}

func NewPostgresVectorStore(db *sql.DB) *PostgresVectorStore {
	return &PostgresVectorStore{db: db}
}

func (s *PostgresVectorStore) Get(ctx context.Context, userID domain.UserID) (Stamped, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT dominance, stability, empathy, logic,
		       religiosity, conflict_style, attachment_security, ambition,
		       source_tests, version, computed_at
		FROM trait_vectors WHERE user_id = $1`, userID.String())

	v := make(Vector, len(Dimensions))
	var (
		dom, sta, emp, log, rel, con, att, amb float64
		sourceTests, version                   int
		computedAt                             time.Time
	)
	err := row.Scan(&dom, &sta, &emp, &log, &rel, &con, &att, &amb, &sourceTests, &version, &computedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Stamped{}, sentinel.ErrNotFound
		}
		return Stamped{}, fmt.Errorf("get trait vector: %w", err)
	}

	v[Dominance], v[Stability], v[Empathy], v[Logic] = dom, sta, emp, log
	v[Religiosity], v[ConflictStyle], v[AttachmentSecurity], v[Ambition] = rel, con, att, amb

	return Stamped{
		UserID:      userID,
		Vector:      v,
		SourceTests: sourceTests,
		Version:     version,
		ComputedAt:  computedAt,
	}, nil
}

func (s *PostgresVectorStore) Put(ctx context.Context, v Stamped) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trait_vectors (
			user_id, dominance, stability, empathy, logic,
			religiosity, conflict_style, attachment_security, ambition,
			source_tests, version, computed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id) DO UPDATE SET
			dominance = EXCLUDED.dominance,
			stability = EXCLUDED.stability,
			empathy = EXCLUDED.empathy,
			logic = EXCLUDED.logic,
			religiosity = EXCLUDED.religiosity,
			conflict_style = EXCLUDED.conflict_style,
			attachment_security = EXCLUDED.attachment_security,
			ambition = EXCLUDED.ambition,
			source_tests = EXCLUDED.source_tests,
			version = EXCLUDED.version,
			computed_at = EXCLUDED.computed_at`,
		v.UserID.String(),
		v.Vector[Dominance], v.Vector[Stability], v.Vector[Empathy], v.Vector[Logic],
		v.Vector[Religiosity], v.Vector[ConflictStyle], v.Vector[AttachmentSecurity], v.Vector[Ambition],
		v.SourceTests, v.Version, v.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("put trait vector: %w", err)
	}
	return nil
}

// PostgresTestSource reads raw test records from the assessment subsystem's
// test_results table. Read-only: this service never writes tests.
type PostgresTestSource struct {
	db *sql.DB
}

func NewPostgresTestSource(db *sql.DB) *PostgresTestSource {
	return &PostgresTestSource{db: db}
}

func (s *PostgresTestSource) ListByUser(ctx context.Context, userID domain.UserID) ([]TestResult, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, score, updated_at
		FROM test_results WHERE user_id = $1`, userID.String())
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list tests: %w", err)
	}
	defer rows.Close()

	var (
		tests     []TestResult
		updatedAt time.Time
	)
	for rows.Next() {
		var (
			category string
			score    float64
			rowTime  time.Time
		)
		if err := rows.Scan(&category, &score, &rowTime); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan test: %w", err)
		}
		tests = append(tests, TestResult{
			UserID:   userID,
			Category: TestCategory(category),
			Score:    score,
		})
		if rowTime.After(updatedAt) {
			updatedAt = rowTime
		}
	}
	return tests, updatedAt, rows.Err()
}

func (s *PostgresTestSource) ListUsers(ctx context.Context, afterID string, limit int) ([]domain.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM test_results
		WHERE user_id > $1 ORDER BY user_id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list users with tests: %w", err)
	}
	defer rows.Close()

	var users []domain.UserID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		id, err := domain.ParseUserID(raw)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
