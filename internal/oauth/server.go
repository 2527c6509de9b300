// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/event"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
	"github.com/taibuivan/gatekeeper/pkg/uuid"
)

// # Authorization Server

// Stores groups the repositories the server writes tokens to.
type Stores struct {
	Clients       ClientRepository
	AccessTokens  AccessTokenRepository
	RefreshTokens RefreshTokenRepository

	// Atomic runs fn against stores sharing one transaction. When nil, fn
	// runs against these stores directly.
	Atomic func(ctx context.Context, fn func(stores Stores) error) error
}

// atomically runs fn in a transaction when the stores support one.
func (stores Stores) atomically(ctx context.Context, fn func(stores Stores) error) error {
	if stores.Atomic == nil {
		return fn(stores)
	}
	return stores.Atomic(ctx, fn)
}

// Server runs the token grants and refresh-token revocation.
type Server struct {
	stores    Stores
	users     identity.UserRepository
	resolver  *identity.Resolver
	verifier  *identity.Verifier
	tokens    *sec.TokenService
	encrypter *sec.Encrypter
	publisher event.Publisher
	now       func() time.Time
}

// NewServer constructs a new [Server]. A nil publisher discards events.
func NewServer(
	stores Stores,
	users identity.UserRepository,
	verifier *identity.Verifier,
	tokens *sec.TokenService,
	encrypter *sec.Encrypter,
	publisher event.Publisher,
) *Server {
	if publisher == nil {
		publisher = event.Noop{}
	}
	return &Server{
		stores:    stores,
		users:     users,
		resolver:  identity.NewResolver(users),
		verifier:  verifier,
		tokens:    tokens,
		encrypter: encrypter,
		publisher: publisher,
		now:       time.Now,
	}
}

// grant issues tokens for an authenticated client.
type grant func(server *Server, ctx context.Context, client *Client, request TokenRequest) (*TokenResponse, error)

// grants is the registry of supported grant types.
var grants = map[string]grant{
	GrantPassword:          (*Server).passwordGrant,
	GrantClientCredentials: (*Server).clientCredentialsGrant,
	GrantRefreshToken:      (*Server).refreshTokenGrant,
}

/*
IssueToken authenticates the client and runs the requested grant.

Returns:
  - *TokenResponse: The issued token pair
  - error: *Error for protocol failures, anything else for storage failures
*/
func (server *Server) IssueToken(ctx context.Context, request TokenRequest) (*TokenResponse, error) {
	if request.GrantType == "" {
		return nil, InvalidRequest("grant_type")
	}

	run, ok := grants[request.GrantType]
	if !ok {
		return nil, ErrUnsupportedGrantType
	}

	client, err := server.authenticateClient(ctx, request.ClientID, request.ClientSecret)
	if err != nil {
		return nil, err
	}

	response, err := run(server, ctx, client, request)
	if err != nil {
		return nil, err
	}

	tokensIssuedTotal.WithLabelValues(request.GrantType).Inc()
	return response, nil
}

// authenticateClient checks the client id and secret. The secret is compared
// in constant time.
func (server *Server) authenticateClient(ctx context.Context, clientID, secret string) (*Client, error) {
	if clientID == "" {
		return nil, InvalidRequest("client_id")
	}

	client, err := server.stores.Clients.FindByID(ctx, clientID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(secret)) != 1 {
		return nil, ErrInvalidClient
	}

	return client, nil
}

// # Grants

func (server *Server) passwordGrant(ctx context.Context, client *Client, request TokenRequest) (*TokenResponse, error) {
	if request.Username == "" {
		return nil, InvalidRequest("username")
	}
	if request.Password == "" {
		return nil, InvalidRequest("password")
	}

	credentials := identity.Credentials{
		identity.FieldUsername: request.Username,
		identity.FieldPassword: request.Password,
	}

	user, err := server.resolver.Resolve(ctx, credentials)
	if err != nil {
		return nil, err
	}

	ok, err := server.verifier.Verify(ctx, user, credentials)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	scopes := sec.IntersectScopes(request.Scopes, client.Scope)
	return server.issue(ctx, server.stores, client, user, scopes, true)
}

func (server *Server) clientCredentialsGrant(ctx context.Context, client *Client, request TokenRequest) (*TokenResponse, error) {
	scopes := sec.IntersectScopes(request.Scopes, client.Scope)
	return server.issue(ctx, server.stores, client, nil, scopes, false)
}

func (server *Server) refreshTokenGrant(ctx context.Context, client *Client, request TokenRequest) (*TokenResponse, error) {
	if request.RefreshToken == "" {
		return nil, InvalidRequest("refresh_token")
	}

	payload, err := server.openRefreshToken(request.RefreshToken)
	if err != nil {
		return nil, InvalidRequest("refresh_token")
	}

	if payload.ClientID != client.ID {
		return nil, InvalidGrant("Token is not linked to client.")
	}
	if payload.ExpireTime < server.now().Unix() {
		return nil, InvalidGrant("Token has expired.")
	}

	// Consuming the old token and storing the new pair commit together, so a
	// failed write leaves the old token usable.
	var response *TokenResponse
	err = server.stores.atomically(ctx, func(stores Stores) error {
		stored, err := stores.RefreshTokens.Consume(ctx, payload.RefreshTokenID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return InvalidGrant("Token has been revoked.")
			}
			return err
		}

		user, err := server.users.FindByID(ctx, stored.UserID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return ErrInvalidCredentials
			}
			return err
		}

		// Scopes may narrow on refresh, never widen.
		scopes := stored.Scopes
		if requested := sec.FilterScopes(request.Scopes); len(requested) > 0 {
			for _, scope := range requested {
				if !slices.Contains(stored.Scopes, scope) {
					return InvalidScope(scope)
				}
			}
			scopes = requested
		}

		response, err = server.issue(ctx, stores, client, user, sec.IntersectScopes(scopes, client.Scope), true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

/*
issue signs an access token and, when asked, stores and seals a refresh token.

Description: The JWT carries the user's role at issuance. The access token
row is an audit record only.
*/
func (server *Server) issue(ctx context.Context, stores Stores, client *Client, user *identity.User, scopes []string, withRefresh bool) (*TokenResponse, error) {
	accessToken := &AccessToken{
		ID:       uuid.New(),
		ClientID: client.ID,
		Scopes:   scopes,
	}

	input := sec.AccessTokenInput{
		TokenID:    accessToken.ID,
		ClientID:   client.ID,
		Scopes:     scopes,
		TimeToLive: AccessTokenTTL,
	}
	if user != nil {
		accessToken.UserID = user.ID
		input.UserID = user.ID
		input.Role = string(user.Role)
	}

	signed, expiresAt, err := server.tokens.GenerateAccessToken(input)
	if err != nil {
		return nil, fmt.Errorf("oauth_server_issue_failed: %w", err)
	}
	accessToken.ExpiresAt = expiresAt

	if err := stores.AccessTokens.Create(ctx, accessToken); err != nil {
		return nil, fmt.Errorf("oauth_server_issue_failed: %w", err)
	}

	response := &TokenResponse{
		TokenType:   "Bearer",
		ExpiresIn:   int(AccessTokenTTL.Seconds()),
		AccessToken: signed,
	}

	if withRefresh && user != nil {
		response.RefreshToken, err = server.issueRefreshToken(ctx, stores, accessToken)
		if err != nil {
			return nil, err
		}
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "oauth_token_issued",
		slog.String("client_id", client.ID),
		slog.String("user_id", accessToken.UserID),
		slog.Any("scopes", scopes),
	)

	return response, nil
}

func (server *Server) issueRefreshToken(ctx context.Context, stores Stores, accessToken *AccessToken) (string, error) {
	id, err := sec.GenerateSecureToken(refreshTokenIDLength)
	if err != nil {
		return "", fmt.Errorf("oauth_server_issue_refresh_failed: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:            id,
		AccessTokenID: accessToken.ID,
		ClientID:      accessToken.ClientID,
		UserID:        accessToken.UserID,
		Scopes:        accessToken.Scopes,
		ExpiresAt:     server.now().Add(RefreshTokenTTL),
	}

	if err := stores.RefreshTokens.Create(ctx, refreshToken); err != nil {
		return "", fmt.Errorf("oauth_server_issue_refresh_failed: %w", err)
	}

	plaintext, err := json.Marshal(refreshPayload{
		ClientID:       refreshToken.ClientID,
		RefreshTokenID: refreshToken.ID,
		AccessTokenID:  refreshToken.AccessTokenID,
		UserID:         refreshToken.UserID,
		Scopes:         refreshToken.Scopes,
		ExpireTime:     refreshToken.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("oauth_server_issue_refresh_failed: %w", err)
	}

	sealed, err := server.encrypter.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("oauth_server_issue_refresh_failed: %w", err)
	}
	return sealed, nil
}

// openRefreshToken decrypts and decodes a wire refresh token.
func (server *Server) openRefreshToken(token string) (*refreshPayload, error) {
	plaintext, err := server.encrypter.Decrypt(token)
	if err != nil {
		return nil, err
	}

	payload := &refreshPayload{}
	if err := json.Unmarshal(plaintext, payload); err != nil {
		return nil, err
	}
	if payload.RefreshTokenID == "" {
		return nil, errors.New("oauth: refresh payload has no id")
	}
	return payload, nil
}

// # Revocation

/*
InvalidateToken revokes a refresh token owned by the principal's user.

Description: A token that cannot be decrypted counts as revoked, as RFC 7009
requires. Revoking does not touch access tokens already issued.

Returns:
  - error: *Error access_denied when the token belongs to another user
*/
func (server *Server) InvalidateToken(ctx context.Context, principal *sec.Principal, token string) error {
	payload, err := server.openRefreshToken(token)
	if err != nil {
		return nil
	}

	if principal == nil || principal.UserID == "" || principal.UserID != payload.UserID {
		return AccessDenied("That refresh token does not belong to the currently authorized user.")
	}

	if err := server.stores.RefreshTokens.Delete(ctx, payload.RefreshTokenID); err != nil {
		return fmt.Errorf("oauth_server_invalidate_failed: %w", err)
	}

	server.announceRevocation(ctx, payload)
	return nil
}

func (server *Server) announceRevocation(ctx context.Context, payload *refreshPayload) {
	evt, err := event.New("oauth.refresh_revoked", payload.RefreshTokenID, "refresh_token", map[string]string{
		"client_id": payload.ClientID,
		"user_id":   payload.UserID,
	})
	if err == nil {
		err = server.publisher.Publish(ctx, event.TopicOAuthRefreshRevoked, evt.WithCorrelationID(ctxutil.GetRequestID(ctx)))
	}
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "event_publish_failed",
			slog.String("topic", event.TopicOAuthRefreshRevoked),
			slog.Any("error", err),
		)
	}
}
