// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import "context"

// # Repository Contracts

// ClientRepository defines the persistence contract for clients.
type ClientRepository interface {
	/*
		FindByID returns the client with the given app id.

		Returns:
		  - *Client: Loaded client
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(ctx context.Context, clientID string) (*Client, error)

	/*
		FindBySecret returns the client owning a secret (legacy API key).

		Returns:
		  - *Client: Loaded client
		  - error: apperr.NotFound or storage failures
	*/
	FindBySecret(ctx context.Context, secret string) (*Client, error)

	/*
		Create persists a new client.

		Returns:
		  - error: The raw unique violation on a taken id or secret, so the
		    caller can regenerate the secret
	*/
	Create(ctx context.Context, client *Client) error
}

// AccessTokenRepository records issued access tokens.
type AccessTokenRepository interface {
	Create(ctx context.Context, token *AccessToken) error
}

// RefreshTokenRepository defines the persistence contract for refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error

	/*
		Consume deletes the token and returns it, in one statement.

		Description: Of two concurrent calls for the same id, exactly one
		receives the token.

		Returns:
		  - *RefreshToken: The consumed token
		  - error: apperr.NotFound when it was already used or revoked
	*/
	Consume(ctx context.Context, id string) (*RefreshToken, error)

	// Delete removes the token. A missing token is not an error.
	Delete(ctx context.Context, id string) error
}
