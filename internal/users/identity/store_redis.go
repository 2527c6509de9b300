// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Legacy Token Repository

// RedisLegacyTokenRepository implements [LegacyTokenRepository] using Redis.
type RedisLegacyTokenRepository struct {
	client redis.Cmdable
}

// NewLegacyTokenRepository creates a new Redis-backed LegacyTokenRepository.
func NewLegacyTokenRepository(client redis.Cmdable) *RedisLegacyTokenRepository {
	return &RedisLegacyTokenRepository{client: client}
}

// legacyTokenKey stores tokens under their SHA-256 so a dump of Redis does
// not hand out live sessions.
func legacyTokenKey(token string) string {
	return constants.RedisPrefixLegacyToken + sec.HashToken(token)
}

/*
Set stores a token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string (raw token, hashed before storage)
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisLegacyTokenRepository) Set(context context.Context, token string, userID string, ttl time.Duration) error {
	if err := repository.client.Set(context, legacyTokenKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_legacy_token_set_failed: %w", err)
	}
	return nil
}

/*
Get retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Returns:
  - string: Owning UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisLegacyTokenRepository) Get(context context.Context, token string) (string, error) {
	userID, err := repository.client.Get(context, legacyTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Token")
		}
		return "", fmt.Errorf("redis_legacy_token_get_failed: %w", err)
	}
	return userID, nil
}

/*
Delete removes the token. Deleting an unknown token is not an error.

Returns:
  - error: Deletion failures
*/
func (repository *RedisLegacyTokenRepository) Delete(context context.Context, token string) error {
	if err := repository.client.Del(context, legacyTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("redis_legacy_token_delete_failed: %w", err)
	}
	return nil
}
