// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the connection pool behind the account and OAuth
// repositories.
//
// Repositories depend on [DBTX] rather than the pool so that pgxmock can stand
// in for the database in tests.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
)

// DBTX is the subset of [pgxpool.Pool] used by repositories.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Options tunes the pool. Zero fields keep the pgxpool defaults.
type Options struct {
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

const (
	maxConnLifetime = 60 * time.Minute
	maxConnIdleTime = 10 * time.Minute
	connectTimeout  = 5 * time.Second
	pingTimeout     = 2 * time.Second
)

/*
NewPool connects to PostgreSQL and verifies the connection.

Description: Every session is tagged with the application name and resolves
unqualified names against the users and auth schemas. A statement timeout is
applied so a stuck query cannot outlive the request that issued it.

Parameters:
  - ctx: context.Context bounding the initial connection.
  - dsn: string postgres:// URL or libpq keyword string.
  - options: Options pool sizing.
  - logger: *slog.Logger

Returns:
  - *pgxpool.Pool: The connected pool.
  - error: Invalid DSN or unreachable database.
*/
func NewPool(ctx context.Context, dsn string, options Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres_parse_dsn_failed: %w", err)
	}

	if options.MaxConns > 0 {
		poolConfig.MaxConns = options.MaxConns
	}
	if options.MinConns > 0 {
		poolConfig.MinConns = min(options.MinConns, poolConfig.MaxConns)
	}
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	runtime := poolConfig.ConnConfig.RuntimeParams
	runtime["application_name"] = constants.AppName
	runtime["search_path"] = strings.Join([]string{constants.SchemaUsers, constants.SchemaAuth, "public"}, ",")
	if options.StatementTimeout > 0 {
		runtime["statement_timeout"] = fmt.Sprintf("%d", options.StatementTimeout.Milliseconds())
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres_open_pool_failed: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)

	return pool, nil
}

// Pinger is satisfied by [pgxpool.Pool] and pgxmock.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the database within a short deadline.
func Ping(ctx context.Context, pool Pinger) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres_ping_failed: %w", err)
	}
	return nil
}
