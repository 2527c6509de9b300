// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/oauth"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
)

const (
	aliceID = "0190c3a4-0000-7000-8000-0000000000a1"
	bobID   = "0190c3a4-0000-7000-8000-0000000000b0"
)

type fixture struct {
	server   *oauth.Server
	tokens   *sec.TokenService
	users    *memoryUsers
	clients  *memoryClients
	access   *memoryAccessTokens
	refresh  *memoryRefreshTokens
	services *oauth.ClientService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alicePassword, err := sec.HashPassword("correct horse")
	require.NoError(t, err)
	bobLegacy, err := sec.HashDrupalPassword("battery staple", 7)
	require.NoError(t, err)

	users := newMemoryUsers(
		identity.User{ID: aliceID, Email: "alice@example.com", Password: alicePassword, Role: sec.RoleStaff},
		identity.User{ID: bobID, Mobile: "5551234567", DrupalPassword: bobLegacy, Role: sec.RoleUser},
	)
	clients := newMemoryClients(
		oauth.Client{ID: "app1", Secret: "s3cr3t", Scope: []string{"user"}},
		oauth.Client{ID: "admin_app", Secret: "adm1n", Scope: []string{"user", "admin", "role:staff"}},
	)

	encrypter, err := sec.NewEncrypter("test-app-key")
	require.NoError(t, err)

	f := &fixture{
		tokens:  tokenService(t),
		users:   users,
		clients: clients,
		access:  &memoryAccessTokens{},
		refresh: newMemoryRefreshTokens(),
	}
	f.services = oauth.NewClientService(clients)

	// Refresh tokens roll back like a transaction would.
	stores := oauth.Stores{Clients: clients, AccessTokens: f.access, RefreshTokens: f.refresh}
	stores.Atomic = func(_ context.Context, fn func(stores oauth.Stores) error) error {
		snapshot := f.refresh.snapshot()
		if err := fn(stores); err != nil {
			f.refresh.restore(snapshot)
			return err
		}
		return nil
	}

	f.server = oauth.NewServer(
		stores,
		users,
		identity.NewVerifier(users, nil),
		f.tokens,
		encrypter,
		nil,
	)
	return f
}

func (f *fixture) passwordGrant(t *testing.T, clientID, secret, username, password string, scopes ...string) *oauth.TokenResponse {
	t.Helper()

	response, err := f.server.IssueToken(context.Background(), oauth.TokenRequest{
		GrantType:    oauth.GrantPassword,
		ClientID:     clientID,
		ClientSecret: secret,
		Username:     username,
		Password:     password,
		Scopes:       scopes,
	})
	require.NoError(t, err)
	return response
}

func requireOAuthError(t *testing.T, err error, code string) {
	t.Helper()

	oauthError := oauth.AsError(err)
	require.NotNil(t, oauthError, "expected an OAuth error, got %v", err)
	assert.Equal(t, code, oauthError.Code)
}

/*
TestPasswordGrant checks the app1/s3cr3t scenario end to end.
*/
func TestPasswordGrant(t *testing.T) {
	f := newFixture(t)

	response := f.passwordGrant(t, "app1", "s3cr3t", "Alice@Example.com", "correct horse", "user", "admin")

	assert.Equal(t, "Bearer", response.TokenType)
	assert.Equal(t, 3600, response.ExpiresIn)
	assert.NotEmpty(t, response.RefreshToken)

	claims, err := f.tokens.VerifyAccessToken(response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, aliceID, claims.Subject)
	assert.Equal(t, "app1", claims.ClientID())
	assert.Equal(t, []string{"user"}, claims.Scopes)
	assert.Equal(t, string(sec.RoleStaff), claims.Role)

	require.Len(t, f.access.tokens, 1)
	assert.Equal(t, claims.ID, f.access.tokens[0].ID)
	assert.Equal(t, 1, f.refresh.len())
}

/*
TestPasswordGrant_EmptyScopeTakesClientScopes checks the default scope rule.
*/
func TestPasswordGrant_EmptyScopeTakesClientScopes(t *testing.T) {
	f := newFixture(t)

	response := f.passwordGrant(t, "admin_app", "adm1n", "alice@example.com", "correct horse")

	claims, err := f.tokens.VerifyAccessToken(response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "admin", "role:staff"}, claims.Scopes)
}

/*
TestPasswordGrant_MigratesLegacyUser checks that a Drupal hash logs in by mobile and is upgraded.
*/
func TestPasswordGrant_MigratesLegacyUser(t *testing.T) {
	f := newFixture(t)

	f.passwordGrant(t, "app1", "s3cr3t", "(555) 123-4567", "battery staple")

	bob, err := f.users.FindByID(context.Background(), bobID)
	require.NoError(t, err)
	assert.Empty(t, bob.DrupalPassword)
	assert.True(t, sec.CheckPasswordHash("battery staple", bob.Password))
}

/*
TestIssueToken_Failures covers the protocol errors of the token endpoint.
*/
func TestIssueToken_Failures(t *testing.T) {
	tests := []struct {
		name    string
		request oauth.TokenRequest
		code    string
	}{
		{
			name:    "missing_grant_type",
			request: oauth.TokenRequest{ClientID: "app1", ClientSecret: "s3cr3t"},
			code:    oauth.CodeInvalidRequest,
		},
		{
			name:    "unsupported_grant_type",
			request: oauth.TokenRequest{GrantType: "authorization_code", ClientID: "app1", ClientSecret: "s3cr3t"},
			code:    oauth.CodeUnsupportedGrantType,
		},
		{
			name:    "missing_client_id",
			request: oauth.TokenRequest{GrantType: oauth.GrantClientCredentials},
			code:    oauth.CodeInvalidRequest,
		},
		{
			name:    "unknown_client",
			request: oauth.TokenRequest{GrantType: oauth.GrantClientCredentials, ClientID: "nope", ClientSecret: "s3cr3t"},
			code:    oauth.CodeInvalidClient,
		},
		{
			name:    "wrong_secret",
			request: oauth.TokenRequest{GrantType: oauth.GrantClientCredentials, ClientID: "app1", ClientSecret: "s3cr3T"},
			code:    oauth.CodeInvalidClient,
		},
		{
			name: "wrong_password",
			request: oauth.TokenRequest{
				GrantType: oauth.GrantPassword, ClientID: "app1", ClientSecret: "s3cr3t",
				Username: "alice@example.com", Password: "wrong",
			},
			code: oauth.CodeInvalidGrant,
		},
		{
			name: "unknown_user",
			request: oauth.TokenRequest{
				GrantType: oauth.GrantPassword, ClientID: "app1", ClientSecret: "s3cr3t",
				Username: "nobody@example.com", Password: "correct horse",
			},
			code: oauth.CodeInvalidGrant,
		},
		{
			name: "missing_password",
			request: oauth.TokenRequest{
				GrantType: oauth.GrantPassword, ClientID: "app1", ClientSecret: "s3cr3t",
				Username: "alice@example.com",
			},
			code: oauth.CodeInvalidRequest,
		},
		{
			name:    "missing_refresh_token",
			request: oauth.TokenRequest{GrantType: oauth.GrantRefreshToken, ClientID: "app1", ClientSecret: "s3cr3t"},
			code:    oauth.CodeInvalidRequest,
		},
		{
			name: "garbage_refresh_token",
			request: oauth.TokenRequest{
				GrantType: oauth.GrantRefreshToken, ClientID: "app1", ClientSecret: "s3cr3t",
				RefreshToken: "not-a-token",
			},
			code: oauth.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			response, err := f.server.IssueToken(context.Background(), tt.request)

			assert.Nil(t, response)
			requireOAuthError(t, err, tt.code)
		})
	}
}

/*
TestIssueToken_CredentialErrorsMatch checks that an unknown user and a wrong password are indistinguishable.
*/
func TestIssueToken_CredentialErrorsMatch(t *testing.T) {
	f := newFixture(t)
	request := oauth.TokenRequest{GrantType: oauth.GrantPassword, ClientID: "app1", ClientSecret: "s3cr3t"}

	request.Username, request.Password = "alice@example.com", "wrong"
	_, wrongPassword := f.server.IssueToken(context.Background(), request)

	request.Username, request.Password = "nobody@example.com", "wrong"
	_, unknownUser := f.server.IssueToken(context.Background(), request)

	assert.Equal(t, wrongPassword, unknownUser)
	assert.Equal(t, "The user credentials were incorrect.", oauth.AsError(unknownUser).Message)
}

/*
TestClientCredentialsGrant checks that application tokens carry no user and no refresh token.
*/
func TestClientCredentialsGrant(t *testing.T) {
	f := newFixture(t)

	response, err := f.server.IssueToken(context.Background(), oauth.TokenRequest{
		GrantType:    oauth.GrantClientCredentials,
		ClientID:     "admin_app",
		ClientSecret: "adm1n",
		Scopes:       []string{"admin", "made-up"},
	})
	require.NoError(t, err)

	assert.Empty(t, response.RefreshToken)

	claims, err := f.tokens.VerifyAccessToken(response.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.Subject)
	assert.Empty(t, claims.Role)
	assert.Equal(t, []string{"admin"}, claims.Scopes)
	assert.Zero(t, f.refresh.len())
}

/*
TestRefreshTokenGrant checks rotation and single use.
*/
func TestRefreshTokenGrant(t *testing.T) {
	f := newFixture(t)
	first := f.passwordGrant(t, "admin_app", "adm1n", "alice@example.com", "correct horse")

	request := oauth.TokenRequest{
		GrantType:    oauth.GrantRefreshToken,
		ClientID:     "admin_app",
		ClientSecret: "adm1n",
		RefreshToken: first.RefreshToken,
		Scopes:       []string{"user"},
	}

	second, err := f.server.IssueToken(context.Background(), request)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	claims, err := f.tokens.VerifyAccessToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, aliceID, claims.Subject)
	assert.Equal(t, []string{"user"}, claims.Scopes)

	// Replaying the consumed token fails.
	_, err = f.server.IssueToken(context.Background(), request)
	requireOAuthError(t, err, oauth.CodeInvalidGrant)
}

/*
TestRefreshTokenGrant_FailedWriteKeepsToken checks that a storage failure while
issuing the new pair leaves the presented refresh token usable.
*/
func TestRefreshTokenGrant_FailedWriteKeepsToken(t *testing.T) {
	f := newFixture(t)
	issued := f.passwordGrant(t, "app1", "s3cr3t", "alice@example.com", "correct horse")

	request := oauth.TokenRequest{
		GrantType:    oauth.GrantRefreshToken,
		ClientID:     "app1",
		ClientSecret: "s3cr3t",
		RefreshToken: issued.RefreshToken,
	}

	f.access.err = errors.New("connection reset")
	_, err := f.server.IssueToken(context.Background(), request)
	require.Error(t, err)
	assert.Nil(t, oauth.AsError(err))
	assert.Equal(t, 1, f.refresh.len())

	f.access.err = nil
	refreshed, err := f.server.IssueToken(context.Background(), request)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.RefreshToken)
	assert.Equal(t, 1, f.refresh.len())
}

/*
TestRefreshTokenGrant_Failures covers client binding, scope widening and vanished users.
*/
func TestRefreshTokenGrant_Failures(t *testing.T) {
	t.Run("other_client", func(t *testing.T) {
		f := newFixture(t)
		issued := f.passwordGrant(t, "app1", "s3cr3t", "alice@example.com", "correct horse")

		_, err := f.server.IssueToken(context.Background(), oauth.TokenRequest{
			GrantType: oauth.GrantRefreshToken, ClientID: "admin_app", ClientSecret: "adm1n",
			RefreshToken: issued.RefreshToken,
		})
		requireOAuthError(t, err, oauth.CodeInvalidGrant)

		// The token survives a misdirected attempt.
		assert.Equal(t, 1, f.refresh.len())
	})

	t.Run("wider_scope", func(t *testing.T) {
		f := newFixture(t)
		issued := f.passwordGrant(t, "admin_app", "adm1n", "alice@example.com", "correct horse", "user")

		_, err := f.server.IssueToken(context.Background(), oauth.TokenRequest{
			GrantType: oauth.GrantRefreshToken, ClientID: "admin_app", ClientSecret: "adm1n",
			RefreshToken: issued.RefreshToken, Scopes: []string{"admin"},
		})
		requireOAuthError(t, err, oauth.CodeInvalidScope)
	})

	t.Run("user_removed", func(t *testing.T) {
		f := newFixture(t)
		issued := f.passwordGrant(t, "app1", "s3cr3t", "alice@example.com", "correct horse")
		f.users.remove(aliceID)

		_, err := f.server.IssueToken(context.Background(), oauth.TokenRequest{
			GrantType: oauth.GrantRefreshToken, ClientID: "app1", ClientSecret: "s3cr3t",
			RefreshToken: issued.RefreshToken,
		})
		requireOAuthError(t, err, oauth.CodeInvalidGrant)
	})
}

/*
TestInvalidateToken covers ownership, malformed tokens and the effect on refresh.
*/
func TestInvalidateToken(t *testing.T) {
	alice := &sec.Principal{Scheme: sec.SchemeOAuth, ClientID: "app1", UserID: aliceID}
	bob := &sec.Principal{Scheme: sec.SchemeOAuth, ClientID: "app1", UserID: bobID}

	t.Run("malformed_is_success", func(t *testing.T) {
		f := newFixture(t)
		assert.NoError(t, f.server.InvalidateToken(context.Background(), alice, "garbage"))
	})

	t.Run("foreign_token_is_denied", func(t *testing.T) {
		f := newFixture(t)
		issued := f.passwordGrant(t, "app1", "s3cr3t", "alice@example.com", "correct horse")

		err := f.server.InvalidateToken(context.Background(), bob, issued.RefreshToken)
		requireOAuthError(t, err, oauth.CodeAccessDenied)
		assert.Equal(t, 1, f.refresh.len())
	})

	t.Run("own_token_is_revoked", func(t *testing.T) {
		f := newFixture(t)
		issued := f.passwordGrant(t, "app1", "s3cr3t", "alice@example.com", "correct horse")

		require.NoError(t, f.server.InvalidateToken(context.Background(), alice, issued.RefreshToken))
		assert.Zero(t, f.refresh.len())

		// Revoking twice is still fine.
		require.NoError(t, f.server.InvalidateToken(context.Background(), alice, issued.RefreshToken))

		_, err := f.server.IssueToken(context.Background(), oauth.TokenRequest{
			GrantType: oauth.GrantRefreshToken, ClientID: "app1", ClientSecret: "s3cr3t",
			RefreshToken: issued.RefreshToken,
		})
		requireOAuthError(t, err, oauth.CodeInvalidGrant)
	})
}
