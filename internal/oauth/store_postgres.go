// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/database/schema"
	"github.com/taibuivan/gatekeeper/internal/platform/postgres"
)

var (
	clientTable  = schema.AuthClient
	accessTable  = schema.AuthAccessToken
	refreshTable = schema.AuthRefreshToken

	clientColumns  = strings.Join(clientTable.Columns(), ", ")
	refreshColumns = fmt.Sprintf("%s, %s, %s, %s::text, %s, %s",
		refreshTable.ID, refreshTable.AccessTokenID, refreshTable.ClientID,
		refreshTable.UserID, refreshTable.Scopes, refreshTable.ExpiresAt)
)

// # Stores

// TxDB is a connection pool that can also open transactions.
type TxDB interface {
	postgres.DBTX
	postgres.Beginner
}

// NewPostgresStores builds the repositories over db, with Atomic running them
// inside one transaction.
func NewPostgresStores(db TxDB) Stores {
	stores := storesOver(db)
	stores.Atomic = func(ctx context.Context, fn func(stores Stores) error) error {
		return postgres.WithTx(ctx, db, func(tx pgx.Tx) error {
			return fn(storesOver(tx))
		})
	}
	return stores
}

func storesOver(db postgres.DBTX) Stores {
	return Stores{
		Clients:       NewClientRepository(db),
		AccessTokens:  NewAccessTokenRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
	}
}

// # Client Repository

// PostgresClientRepository implements [ClientRepository] using pgx.
type PostgresClientRepository struct {
	db postgres.DBTX
}

// NewClientRepository creates a new PostgreSQL implementation of the ClientRepository.
func NewClientRepository(db postgres.DBTX) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

// FindByID retrieves a client by app id.
func (repository *PostgresClientRepository) FindByID(context context.Context, clientID string) (*Client, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", clientColumns, clientTable.Table, clientTable.ClientID)
	return repository.findOne(context, query, clientID)
}

// FindBySecret retrieves a client by secret.
func (repository *PostgresClientRepository) FindBySecret(context context.Context, secret string) (*Client, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", clientColumns, clientTable.Table, clientTable.ClientSecret)
	return repository.findOne(context, query, secret)
}

func (repository *PostgresClientRepository) findOne(context context.Context, query string, arg string) (*Client, error) {
	client := &Client{}

	err := repository.db.QueryRow(context, query, arg).Scan(
		&client.ID,
		&client.Secret,
		&client.Scope,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Client")
		}
		return nil, fmt.Errorf("postgres_client_repo_find_failed: %w", err)
	}

	return client, nil
}

/*
Create persists a new client into auth.client.

Returns:
  - error: Wrapped database error; unique violations stay detectable with errors.As
*/
func (repository *PostgresClientRepository) Create(context context.Context, client *Client) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)", clientTable.Table, clientColumns)

	if client.Scope == nil {
		client.Scope = []string{}
	}
	now := time.Now()
	client.CreatedAt = now
	client.UpdatedAt = now

	_, err := repository.db.Exec(context, query, client.ID, client.Secret, client.Scope, client.CreatedAt, client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres_client_repo_create_failed: %w", err)
	}
	return nil
}

// # Access Token Repository

// PostgresAccessTokenRepository implements [AccessTokenRepository] using pgx.
type PostgresAccessTokenRepository struct {
	db postgres.DBTX
}

// NewAccessTokenRepository creates a new PostgreSQL implementation of the AccessTokenRepository.
func NewAccessTokenRepository(db postgres.DBTX) *PostgresAccessTokenRepository {
	return &PostgresAccessTokenRepository{db: db}
}

// Create records an issued access token. A user-less token stores a NULL user.
func (repository *PostgresAccessTokenRepository) Create(context context.Context, token *AccessToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)`,
		accessTable.Table, accessTable.ID, accessTable.ClientID, accessTable.UserID,
		accessTable.Scopes, accessTable.ExpiresAt,
	)

	_, err := repository.db.Exec(context, query, token.ID, token.ClientID, token.UserID, scopesOrEmpty(token.Scopes), token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres_access_token_repo_create_failed: %w", err)
	}
	return nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements [RefreshTokenRepository] using pgx.
type PostgresRefreshTokenRepository struct {
	db postgres.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of the RefreshTokenRepository.
func NewRefreshTokenRepository(db postgres.DBTX) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

// Create persists a refresh token.
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		refreshTable.Table, refreshTable.ID, refreshTable.AccessTokenID, refreshTable.ClientID,
		refreshTable.UserID, refreshTable.Scopes, refreshTable.ExpiresAt,
	)

	_, err := repository.db.Exec(context, query, token.ID, token.AccessTokenID, token.ClientID,
		token.UserID, scopesOrEmpty(token.Scopes), token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_create_failed: %w", err)
	}
	return nil
}

/*
Consume deletes a refresh token and returns the deleted row.

Description: DELETE ... RETURNING makes the read and the removal one step,
so a replayed token finds no row.

Returns:
  - *RefreshToken: The consumed token
  - error: apperr.NotFound or database failures
*/
func (repository *PostgresRefreshTokenRepository) Consume(context context.Context, id string) (*RefreshToken, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1 RETURNING %s",
		refreshTable.Table, refreshTable.ID, refreshColumns)

	token := &RefreshToken{}
	err := repository.db.QueryRow(context, query, id).Scan(
		&token.ID,
		&token.AccessTokenID,
		&token.ClientID,
		&token.UserID,
		&token.Scopes,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, fmt.Errorf("postgres_refresh_token_repo_consume_failed: %w", err)
	}

	return token, nil
}

// Delete removes a refresh token if it exists.
func (repository *PostgresRefreshTokenRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", refreshTable.Table, refreshTable.ID)

	if _, err := repository.db.Exec(context, query, id); err != nil {
		return fmt.Errorf("postgres_refresh_token_repo_delete_failed: %w", err)
	}
	return nil
}

func scopesOrEmpty(scopes []string) []string {
	if scopes == nil {
		return []string{}
	}
	return scopes
}
