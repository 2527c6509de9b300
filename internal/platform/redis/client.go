// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis opens the client that holds legacy session tokens.

Tokens expire on their own and are read on every request carrying the
X-DS-Session-Token header, so they live here rather than in PostgreSQL.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
)

// Options tunes the client. Zero fields keep the go-redis defaults.
type Options struct {
	PoolSize     int
	MinIdleConns int
}

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
	pingTimeout = 2 * time.Second
)

/*
NewClient parses a redis:// URL, connects and verifies the connection.

Parameters:
  - context: stdctx.Context bounding the initial ping.
  - redisURL: string
  - options: Options pool sizing.
  - logger: *slog.Logger

Returns:
  - *redis.Client: The connected client.
  - error: Invalid URL or unreachable server.
*/
func NewClient(context stdctx.Context, redisURL string, options Options, logger *slog.Logger) (*redis.Client, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis_parse_url_failed: %w", err)
	}

	if options.PoolSize > 0 {
		parsed.PoolSize = options.PoolSize
	}
	if options.MinIdleConns > 0 {
		parsed.MinIdleConns = options.MinIdleConns
	}
	parsed.ClientName = constants.AppName
	parsed.DialTimeout = dialTimeout
	parsed.ReadTimeout = ioTimeout
	parsed.WriteTimeout = ioTimeout

	client := redis.NewClient(parsed)

	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", parsed.Addr),
		slog.Int("db", parsed.DB),
	)

	return client, nil
}

// Ping checks the server within a short deadline.
func Ping(context stdctx.Context, client redis.Cmdable) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis_ping_failed: %w", err)
	}
	return nil
}
