// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"time"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByIndexes returns the users matching ANY of the given index values.

		Parameters:
		  - ctx: context.Context
		  - indexes: []Index (at least one)
		  - limit: int (maximum rows to return)

		Returns:
		  - []*User: Matches, possibly empty
		  - error: Database retrieval failures
	*/
	FindByIndexes(ctx context.Context, indexes []Index, limit int) ([]*User, error)

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByID(ctx context.Context, id string) (*User, error)

	/*
		Create persists a brand-new account.

		Returns:
		  - error: A validation error when an index value is already taken
	*/
	Create(ctx context.Context, user *User) error

	/*
		Update persists every mutable field of an existing account.

		Returns:
		  - error: A validation error when an index value is already taken
	*/
	Update(ctx context.Context, user *User) error

	/*
		MigrateLegacyPassword replaces the legacy hash with a bcrypt hash.

		Description: A compare-and-swap. The write only happens while the
		account still has no modern hash and still has a legacy hash.

		Parameters:
		  - ctx: context.Context
		  - userID: string
		  - passwordHash: string (bcrypt)

		Returns:
		  - bool: Whether this call performed the migration
		  - error: Persistence failures
	*/
	MigrateLegacyPassword(ctx context.Context, userID, passwordHash string) (bool, error)

	/*
		SetDrupalID links the account to its legacy profile.

		Returns:
		  - error: A validation error when the id belongs to another account
	*/
	SetDrupalID(ctx context.Context, userID, drupalID string) error
}

// # Volatile Data Access

// LegacyTokenRepository stores legacy session tokens.
//
// Implementations key tokens by their hash; the raw token is never stored.
type LegacyTokenRepository interface {
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get returns the owning user id, or apperr.NotFound.
	Get(ctx context.Context, token string) (string, error)

	Delete(ctx context.Context, token string) error
}
