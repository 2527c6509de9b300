// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the legacy session login.

Clients holding a legacy API key exchange end-user credentials for an opaque
session token. The token is then presented in the X-DS-Session-Token header
and resolved by the authentication guard.

Architecture:

  - Service: Resolve, Verify and issue, on top of the identity package.
  - Handler: The /v1/auth endpoints.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
)

// msgInvalidCredentials is shared by every login failure.
const msgInvalidCredentials = "The user credentials were incorrect."

// Service implements the legacy login use cases.
type Service struct {
	resolver  *identity.Resolver
	verifier  *identity.Verifier
	registrar *identity.Registrar
}

// NewService constructs a new auth [Service].
func NewService(users identity.UserRepository, verifier *identity.Verifier, registrar *identity.Registrar) *Service {
	return &Service{
		resolver:  identity.NewResolver(users),
		verifier:  verifier,
		registrar: registrar,
	}
}

// Session is the result of a successful login.
type Session struct {
	Key  string         `json:"key"`
	User *identity.User `json:"user"`
}

/*
Login authenticates an end user and issues a legacy session token.

Description: An unknown account and a wrong password are indistinguishable to
the caller.

Parameters:
  - context: context.Context
  - credentials: identity.Credentials (username, email or mobile, and password)

Returns:
  - *Session: The token and the authenticated user
  - error: apperr.Unauthorized or storage failures
*/
func (service *Service) Login(context context.Context, credentials identity.Credentials) (*Session, error) {
	user, err := service.resolver.Resolve(context, credentials)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	ok, err := service.verifier.Verify(context, user, credentials)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}
	if !ok {
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	token, err := service.registrar.Login(context, user)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "legacy_login",
		slog.String("user_id", user.ID),
		slog.String("request_id", ctxutil.GetRequestID(context)),
	)

	return &Session{Key: token.Key, User: user}, nil
}

// Logout deletes a legacy session token. Unknown tokens are not an error.
func (service *Service) Logout(context context.Context, token string) error {
	if err := service.registrar.Logout(context, token); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}
