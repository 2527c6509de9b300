// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taibuivan/gatekeeper/internal/legacyprofile"
	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/event"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
)

// memoryUsers is an in-memory UserRepository that assigns sequential ids.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]identity.User
	next  int
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

	store.next++
	user.ID = fmt.Sprintf("0190c3a4-0000-7000-8000-%012d", store.next)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	store.users[user.ID] = *user
	return nil
}

func (store *memoryUsers) Update(_ context.Context, user *identity.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.users[user.ID]; !ok {
		return apperr.NotFound("User")
	}
	store.users[user.ID] = *user
	return nil
}

func (store *memoryUsers) MigrateLegacyPassword(context.Context, string, string) (bool, error) {
	return false, nil
}

func (store *memoryUsers) SetDrupalID(_ context.Context, userID, drupalID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	user := store.users[userID]
	user.DrupalID = drupalID
	store.users[userID] = user
	return nil
}

func (store *memoryUsers) count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.users)
}

// stubProfiles answers every registration with the same uid.
type stubProfiles struct {
	uid      string
	accounts []legacyprofile.Account
}

func (profiles *stubProfiles) Register(_ context.Context, account legacyprofile.Account) (string, error) {
	profiles.accounts = append(profiles.accounts, account)
	return profiles.uid, nil
}

func (profiles *stubProfiles) UIDByEmail(context.Context, string) (string, error) {
	return "", legacyprofile.ErrNotFound
}

// recordingPublisher keeps published events in memory.
type recordingPublisher struct {
	events []*event.Event
}

func (publisher *recordingPublisher) Publish(_ context.Context, _ string, evt *event.Event) error {
	publisher.events = append(publisher.events, evt)
	return nil
}

// memoryTokens satisfies the registrar's token store.
type memoryTokens struct{}

func (memoryTokens) Set(context.Context, string, string, time.Duration) error { return nil }
func (memoryTokens) Get(context.Context, string) (string, error) {
	return "", apperr.NotFound("Token")
}
func (memoryTokens) Delete(context.Context, string) error { return nil }
