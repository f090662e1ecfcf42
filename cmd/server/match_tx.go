package main

import (
	"context"
	"database/sql"
	"time"

	"taaruf/internal/match"
	"taaruf/pkg/domain"
	dErrors "taaruf/pkg/domain-errors"
)

const defaultMatchTxTimeout = 5 * time.Second

// matchPostgresTx runs match mutations inside a real database transaction.
// The store handed to fn reads with FOR UPDATE, so the pair's row is locked
// for the duration.
type matchPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newMatchPostgresTx(db *sql.DB) *matchPostgresTx {
	return &matchPostgresTx{db: db}
}

func (t *matchPostgresTx) RunInTx(ctx context.Context, _ domain.PairKey, fn func(store match.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultMatchTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(match.NewPostgresTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
