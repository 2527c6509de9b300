// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/oauth"
	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/constants"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
)

var (
	signingKeyOnce sync.Once
	signingKey     *rsa.PrivateKey
)

// tokenService shares one RSA key across the package tests.
func tokenService(t *testing.T) *sec.TokenService {
	t.Helper()

	signingKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		signingKey = key
	})
	require.NotNil(t, signingKey)

	return sec.NewTokenServiceFromKeys(signingKey, &signingKey.PublicKey, constants.AuthIssuer)
}

// # Clients

type memoryClients struct {
	mu      sync.Mutex
	clients map[string]oauth.Client
}

func newMemoryClients(clients ...oauth.Client) *memoryClients {
	store := &memoryClients{clients: make(map[string]oauth.Client)}
	for _, client := range clients {
		store.clients[client.ID] = client
	}
	return store
}

func (store *memoryClients) FindByID(_ context.Context, clientID string) (*oauth.Client, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	client, ok := store.clients[clientID]
	if !ok {
		return nil, apperr.NotFound("Client")
	}
	return &client, nil
}

func (store *memoryClients) FindBySecret(_ context.Context, secret string) (*oauth.Client, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, client := range store.clients {
		if client.Secret == secret {
			return &client, nil
		}
	}
	return nil, apperr.NotFound("Client")
}

func (store *memoryClients) Create(_ context.Context, client *oauth.Client) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.clients[client.ID] = *client
	return nil
}

// # Tokens

type memoryAccessTokens struct {
	mu     sync.Mutex
	tokens []oauth.AccessToken
	err    error
}

func (store *memoryAccessTokens) Create(_ context.Context, token *oauth.AccessToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.err != nil {
		return store.err
	}
	store.tokens = append(store.tokens, *token)
	return nil
}

type memoryRefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]oauth.RefreshToken
}

func newMemoryRefreshTokens() *memoryRefreshTokens {
	return &memoryRefreshTokens{tokens: make(map[string]oauth.RefreshToken)}
}

func (store *memoryRefreshTokens) Create(_ context.Context, token *oauth.RefreshToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.tokens[token.ID] = *token
	return nil
}

func (store *memoryRefreshTokens) Consume(_ context.Context, id string) (*oauth.RefreshToken, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	token, ok := store.tokens[id]
	if !ok {
		return nil, apperr.NotFound("Refresh token")
	}
	delete(store.tokens, id)
	return &token, nil
}

func (store *memoryRefreshTokens) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.tokens, id)
	return nil
}

func (store *memoryRefreshTokens) snapshot() map[string]oauth.RefreshToken {
	store.mu.Lock()
	defer store.mu.Unlock()
	return maps.Clone(store.tokens)
}

func (store *memoryRefreshTokens) restore(tokens map[string]oauth.RefreshToken) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.tokens = tokens
}

func (store *memoryRefreshTokens) len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.tokens)
}

// # Users

// memoryUsers covers the lookups the grants perform.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]identity.User
}

func newMemoryUsers(users ...identity.User) *memoryUsers {
	store := &memoryUsers{users: make(map[string]identity.User)}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (store *memoryUsers) FindByIndexes(_ context.Context, indexes []identity.Index, limit int) ([]*identity.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	var matches []*identity.User
	for _, user := range store.users {
		if slices.ContainsFunc(indexes, func(index identity.Index) bool {
			return user.Index(index.Field) == index.Value
		}) {
			copied := user
			matches = append(matches, &copied)
		}
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func (store *memoryUsers) FindByID(_ context.Context, id string) (*identity.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return &user, nil
}

func (store *memoryUsers) Create(_ context.Context, user *identity.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.users[user.ID] = *user
	return nil
}

func (store *memoryUsers) Update(ctx context.Context, user *identity.User) error {
	return store.Create(ctx, user)
}

func (store *memoryUsers) MigrateLegacyPassword(_ context.Context, userID, passwordHash string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok || !user.HasLegacyPassword() {
		return false, nil
	}
	user.Password = passwordHash
	user.DrupalPassword = ""
	store.users[userID] = user
	return true, nil
}

func (store *memoryUsers) SetDrupalID(_ context.Context, userID, drupalID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	user := store.users[userID]
	user.DrupalID = drupalID
	store.users[userID] = user
	return nil
}

func (store *memoryUsers) remove(id string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.users, id)
}
