// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
)

// memoryUsers is an in-memory UserRepository keyed by user id.
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
		for _, index := range indexes {
			if user.Index(index.Field) == index.Value {
				copied := user
				matches = append(matches, &copied)
				break
			}
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

func (store *memoryUsers) Update(_ context.Context, user *identity.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.users[user.ID] = *user
	return nil
}

func (store *memoryUsers) MigrateLegacyPassword(_ context.Context, userID, passwordHash string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user := store.users[userID]
	if user.Password != "" || user.DrupalPassword == "" {
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

func (store *memoryUsers) get(id string) identity.User {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.users[id]
}

// memoryTokens is an in-memory LegacyTokenRepository.
type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[string]string)}
}

func (store *memoryTokens) Set(_ context.Context, token, userID string, _ time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.tokens[token] = userID
	return nil
}

func (store *memoryTokens) Get(_ context.Context, token string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	userID, ok := store.tokens[token]
	if !ok {
		return "", apperr.NotFound("Token")
	}
	return userID, nil
}

func (store *memoryTokens) Delete(_ context.Context, token string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.tokens, token)
	return nil
}

func (store *memoryTokens) len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.tokens)
}
