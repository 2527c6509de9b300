// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/oauth"
	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// collidingClients fails the first inserts with the given constraint.
type collidingClients struct {
	*memoryClients
	constraint string
	failures   int
	secrets    []string
}

func (store *collidingClients) Create(ctx context.Context, client *oauth.Client) error {
	store.secrets = append(store.secrets, client.Secret)
	if store.failures > 0 {
		store.failures--
		return fmt.Errorf("postgres_client_repo_create_failed: %w", &pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: store.constraint,
		})
	}
	return store.memoryClients.Create(ctx, client)
}

/*
TestClientService_Create checks id normalization, scope filtering and the generated secret.
*/
func TestClientService_Create(t *testing.T) {
	clients := newMemoryClients()
	service := oauth.NewClientService(clients)

	client, err := service.Create(context.Background(), "Phoenix Web", []string{"user", "superuser", "admin"})
	require.NoError(t, err)

	assert.Equal(t, "phoenix_web", client.ID)
	assert.Equal(t, []string{"user", "admin"}, client.Scope)
	assert.Len(t, client.Secret, oauth.ClientSecretLength)

	stored, err := service.Find(context.Background(), "phoenix_web")
	require.NoError(t, err)
	assert.Equal(t, client.Secret, stored.Secret)
}

/*
TestClientService_Create_Failures covers empty ids, secret collisions and taken ids.
*/
func TestClientService_Create_Failures(t *testing.T) {
	t.Run("empty_app_id", func(t *testing.T) {
		service := oauth.NewClientService(newMemoryClients())

		_, err := service.Create(context.Background(), "  !! ", nil)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "app_id", ae.Details[0].Field)
	})

	t.Run("secret_collision_regenerates", func(t *testing.T) {
		store := &collidingClients{memoryClients: newMemoryClients(), constraint: "client_secret_key", failures: 2}
		service := oauth.NewClientService(store)

		client, err := service.Create(context.Background(), "app2", nil)
		require.NoError(t, err)

		require.Len(t, store.secrets, 3)
		assert.Equal(t, client.Secret, store.secrets[2])
		assert.Equal(t, []string{}, client.Scope)
	})

	t.Run("secret_collision_gives_up", func(t *testing.T) {
		store := &collidingClients{memoryClients: newMemoryClients(), constraint: "client_secret_key", failures: 100}
		service := oauth.NewClientService(store)

		_, err := service.Create(context.Background(), "app2", nil)

		require.Error(t, err)
		assert.Len(t, store.secrets, 5)
	})

	t.Run("app_id_taken", func(t *testing.T) {
		store := &collidingClients{memoryClients: newMemoryClients(), constraint: "client_pkey", failures: 1}
		service := oauth.NewClientService(store)

		_, err := service.Create(context.Background(), "app1", nil)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "VALIDATION_ERROR", ae.Code)
		assert.Equal(t, "app_id", ae.Details[0].Field)
		assert.Len(t, store.secrets, 1)
	})
}

/*
TestClientService_ResolveAPIKey checks the legacy principal built from a client.
*/
func TestClientService_ResolveAPIKey(t *testing.T) {
	service := oauth.NewClientService(newMemoryClients(
		oauth.Client{ID: "app1", Secret: "s3cr3t", Scope: []string{"user", "retired-scope"}},
	))

	principal, err := service.ResolveAPIKey(context.Background(), "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, &sec.Principal{Scheme: sec.SchemeLegacy, ClientID: "app1", Scopes: []string{"user"}}, principal)

	_, err = service.ResolveAPIKey(context.Background(), "unknown")
	assert.True(t, apperr.IsNotFound(err))
}
