//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Schema is the full DDL applied to a fresh container. Integration tests
// exercise real queries against these tables.
const Schema = `
CREATE TABLE IF NOT EXISTS matches (
	id UUID PRIMARY KEY,
	pair_key TEXT NOT NULL UNIQUE,
	requester_id UUID NOT NULL,
	target_id UUID NOT NULL,
	status TEXT NOT NULL,
	step TEXT NOT NULL,
	requester_viewed BOOLEAN NOT NULL DEFAULT FALSE,
	target_viewed BOOLEAN NOT NULL DEFAULT FALSE,
	gate_opened_by UUID NOT NULL,
	final_score DOUBLE PRECISION,
	compatibility DOUBLE PRECISION,
	conflict_risk DOUBLE PRECISION,
	emotional_stability DOUBLE PRECISION,
	life_alignment DOUBLE PRECISION,
	marriage_stability DOUBLE PRECISION,
	score_version INTEGER,
	score_computed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS trait_vectors (
	user_id UUID PRIMARY KEY,
	dominance DOUBLE PRECISION NOT NULL,
	stability DOUBLE PRECISION NOT NULL,
	empathy DOUBLE PRECISION NOT NULL,
	logic DOUBLE PRECISION NOT NULL,
	religiosity DOUBLE PRECISION NOT NULL,
	conflict_style DOUBLE PRECISION NOT NULL,
	attachment_security DOUBLE PRECISION NOT NULL,
	ambition DOUBLE PRECISION NOT NULL,
	source_tests INTEGER NOT NULL,
	version INTEGER NOT NULL,
	computed_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS test_results (
	user_id UUID NOT NULL,
	category TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, category)
);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY,
	recipient_id UUID NOT NULL,
	match_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	message TEXT NOT NULL,
	dedupe_key TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS penalties (
	user_id UUID PRIMARY KEY,
	level INTEGER NOT NULL,
	freeze_until TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS recompute_outbox (
	user_id UUID PRIMARY KEY,
	enqueued_at TIMESTAMPTZ NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	leased_until TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS recompute_cursors (
	name TEXT PRIMARY KEY,
	cursor TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("taaruf_test"),
		tcpostgres.WithUsername("taaruf"),
		tcpostgres.WithPassword("taaruf"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Truncate empties the given tables between tests.
func (p *PostgresContainer) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}
