// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package postgres_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/platform/postgres"
)

/*
TestPing checks that ping failures are wrapped for the readiness probe.
*/
func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing()
	assert.NoError(t, postgres.Ping(context.Background(), mock))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = postgres.Ping(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_ping_failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

/*
TestNewPool_InvalidDSN checks that a malformed DSN fails before dialing.
*/
func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := postgres.NewPool(context.Background(), "postgres://%zz", postgres.Options{}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_parse_dsn_failed")
}

/*
TestWithTx checks commit on success and rollback with the original error on failure.
*/
func TestWithTx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM auth\.refresh_token`).WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		err = postgres.WithTx(context.Background(), mock, func(tx pgx.Tx) error {
			_, err := tx.Exec(context.Background(), "DELETE FROM auth.refresh_token")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		failure := errors.New("insert failed")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err = postgres.WithTx(context.Background(), mock, func(pgx.Tx) error { return failure })
		assert.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
