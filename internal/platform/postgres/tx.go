// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by [pgxpool.Pool] and pgxmock.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

/*
WithTx runs fn inside one transaction, committing only when fn succeeds.

Parameters:
  - context: context.Context
  - db: Beginner
  - fn: func(pgx.Tx) error (repositories built over tx share its snapshot)

Returns:
  - error: fn's error unchanged, or a begin/commit failure
*/
func WithTx(context context.Context, db Beginner, fn func(tx pgx.Tx) error) error {
	transaction, err := db.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	if err := fn(transaction); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_commit_failed: %w", err)
	}
	return nil
}
