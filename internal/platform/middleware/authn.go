// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/respond"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Authentication Guard

// APIKeyResolver maps a legacy API key to the principal of its client.
//
// Implementations return an [apperr.AppError] with status 404 for unknown keys.
type APIKeyResolver interface {
	ResolveAPIKey(ctx context.Context, key string) (*sec.Principal, error)
}

// AccessTokenVerifier validates OAuth bearer tokens.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*sec.AccessClaims, error)
}

// SessionResolver maps a legacy session token to its user.
type SessionResolver interface {
	ResolveSessionToken(ctx context.Context, token string) (userID string, role sec.UserRole, err error)
}

// errInvalidCredentials does not say which header failed.
var errInvalidCredentials = apperr.Unauthorized("Unauthenticated.")

// Guard bundles the credential checks of both authentication schemes.
//
// Sessions is optional; without it the session header is ignored.
type Guard struct {
	Keys     APIKeyResolver
	Tokens   AccessTokenVerifier
	Sessions SessionResolver
}

// Authenticate resolves the caller of every request into a [sec.Principal].
//
// # Flow
//  1. 'Authorization: Bearer <jwt>' selects the OAuth scheme.
//  2. Otherwise 'X-DS-REST-API-Key' selects the legacy scheme.
//  3. Without either header the request proceeds as anonymous and
//     [RequireAuth] or [RequireScope] fail closed further down.
//  4. A credential that is present but fails verification answers 401.
func Authenticate(guard Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			principal, err := guard.principal(request)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── Context Injection ─────────────────────────────────────────────
			session := ctxutil.GetSession(ctx)
			if session == nil {
				session = sec.NewSession(nil)
				ctx = ctxutil.WithSession(ctx, session)
			}
			if principal != nil {
				session.Set(principal)
			}

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// principal selects exactly one scheme. A nil principal with a nil error
// means no credential was presented.
func (guard Guard) principal(request *http.Request) (*sec.Principal, error) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	// ── 1. OAuth Scheme ───────────────────────────────────────────────────
	if token, ok := bearerToken(request); ok {
		claims, err := guard.Tokens.VerifyAccessToken(token)
		if err != nil {
			logger.DebugContext(ctx, "bearer_token_rejected", slog.Any("error", err))
			return nil, errInvalidCredentials
		}

		return &sec.Principal{
			Scheme:   sec.SchemeOAuth,
			ClientID: claims.ClientID(),
			UserID:   claims.Subject,
			Role:     sec.UserRole(claims.Role),
			Scopes:   sec.FilterScopes(claims.Scopes),
		}, nil
	}

	// ── 2. Legacy Scheme ──────────────────────────────────────────────────
	key := strings.TrimSpace(request.Header.Get(constants.HeaderAPIKey))
	if key == "" {
		return nil, nil
	}

	principal, err := guard.Keys.ResolveAPIKey(ctx, key)
	if err != nil {
		if apperr.IsNotFound(err) {
			logger.DebugContext(ctx, "api_key_rejected")
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	// ── 3. Legacy Session (optional) ──────────────────────────────────────
	sessionToken := strings.TrimSpace(request.Header.Get(constants.HeaderSessionToken))
	if sessionToken != "" && guard.Sessions != nil {
		userID, role, err := guard.Sessions.ResolveSessionToken(ctx, sessionToken)
		switch {
		case err == nil:
			principal.UserID = userID
			principal.Role = role
		case apperr.IsNotFound(err):
			logger.DebugContext(ctx, "session_token_rejected")
			return nil, errInvalidCredentials
		default:
			return nil, err
		}
	}

	return principal, nil
}

// bearerToken extracts the token of an 'Authorization: Bearer' header.
func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// # Authorization

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetPrincipal(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Unauthenticated."))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireScope blocks requests whose principal lacks the scope.
//
// It implies [RequireAuth]: anonymous callers receive 401, authenticated
// callers without the scope receive 403.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if err := sec.Gate(ctxutil.GetPrincipal(request.Context()), scope); err != nil {
				respond.Error(writer, request, err)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
