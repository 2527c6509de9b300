// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth implements the OAuth 2.0 authorization server.

It issues RS256 access tokens and encrypted refresh tokens for the password,
client_credentials and refresh_token grants, revokes refresh tokens, and
manages the client records that double as legacy API keys.

# Architecture

  - Entities: [Client], [AccessToken], [RefreshToken].
  - Services: [Server] runs the grants; [ClientService] manages clients.
  - Storage: contracts in store.go, pgx implementations in store_postgres.go.
*/
package oauth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// # Domain Entities

// Client is an application allowed to request tokens.
//
// The secret is also the legacy API key, so every legacy key is a Client.
// Scope is the ceiling for every token issued to the client.
type Client struct {
	ID        string    `json:"app_id"`
	Secret    string    `json:"api_key"`
	Scope     []string  `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessToken is the audit record of an issued JWT. It is never updated.
type AccessToken struct {
	ID        string
	ClientID  string
	UserID    string
	Scopes    []string
	ExpiresAt time.Time
}

// RefreshToken is a single-use grant for a new token pair.
type RefreshToken struct {
	ID            string
	AccessTokenID string
	ClientID      string
	UserID        string
	Scopes        []string
	ExpiresAt     time.Time
}

// refreshPayload is the plaintext sealed into the wire refresh token.
type refreshPayload struct {
	ClientID       string   `json:"client_id"`
	RefreshTokenID string   `json:"refresh_token_id"`
	AccessTokenID  string   `json:"access_token_id"`
	UserID         string   `json:"user_id"`
	Scopes         []string `json:"scopes"`
	ExpireTime     int64    `json:"expire_time"`
}

// TokenRequest is a parsed token endpoint request.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	Scopes       []string
}

// TokenResponse is the RFC 6749 section 5.1 success body.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// # Grant Types

const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

// # Token Lifetimes

const (
	// AccessTokenTTL is the lifetime of every access token.
	AccessTokenTTL = time.Hour

	// RefreshTokenTTL is the lifetime of every refresh token.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// ClientSecretLength is the number of characters in a generated secret.
	ClientSecretLength = 32

	// maxSecretAttempts bounds regeneration on a secret collision.
	maxSecretAttempts = 5

	// refreshTokenIDLength is the byte length of a refresh token id.
	refreshTokenIDLength = 20
)

// # Metrics

var tokensIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_oauth_tokens_issued_total",
	Help: "Access tokens issued, by grant type",
}, []string{"grant_type"})
