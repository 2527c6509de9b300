// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/dberr"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
	"github.com/taibuivan/gatekeeper/pkg/slug"
)

// # Client Service

// ClientService manages clients and resolves legacy API keys.
type ClientService struct {
	clients ClientRepository
}

// NewClientService constructs a new [ClientService].
func NewClientService(clients ClientRepository) *ClientService {
	return &ClientService{clients: clients}
}

/*
Create registers a client with a freshly generated secret.

Description: The app id is stored in snake_case. Unknown scopes are dropped.
A secret collision regenerates the secret a bounded number of times.

Parameters:
  - ctx: context.Context
  - appID: string (any casing or spacing)
  - scopes: []string

Returns:
  - *Client: The stored client, secret included
  - error: Validation error on an empty or taken app id, or storage failures
*/
func (service *ClientService) Create(ctx context.Context, appID string, scopes []string) (*Client, error) {
	clientID := slug.Snake(appID)
	if clientID == "" {
		return nil, validate.RequiredError("app_id", "This field is required")
	}

	client := &Client{ID: clientID, Scope: sec.FilterScopes(scopes)}

	for attempt := 1; attempt <= maxSecretAttempts; attempt++ {
		secret, err := sec.RandomString(ClientSecretLength)
		if err != nil {
			return nil, fmt.Errorf("oauth_client_service_create_failed: %w", err)
		}
		client.Secret = secret

		err = service.clients.Create(ctx, client)
		if err == nil {
			ctxutil.GetLogger(ctx).InfoContext(ctx, "oauth_client_created",
				slog.String("client_id", client.ID),
				slog.Any("scope", client.Scope),
			)
			return client, nil
		}

		if field, taken := dberr.UniqueViolation(err); !taken || field != "client_secret" {
			return nil, dberr.Wrap(err, "Client")
		}
	}

	return nil, apperr.Internal(fmt.Errorf("oauth_client_service_create_failed: no unique secret after %d attempts", maxSecretAttempts))
}

// Find returns a client by app id.
func (service *ClientService) Find(ctx context.Context, clientID string) (*Client, error) {
	return service.clients.FindByID(ctx, clientID)
}

/*
ResolveAPIKey maps a legacy API key to the principal of its client.

Returns:
  - *sec.Principal: Legacy principal without a user
  - error: apperr.NotFound for an unknown key, or storage failures
*/
func (service *ClientService) ResolveAPIKey(ctx context.Context, key string) (*sec.Principal, error) {
	client, err := service.clients.FindBySecret(ctx, key)
	if err != nil {
		return nil, err
	}

	return &sec.Principal{
		Scheme:   sec.SchemeLegacy,
		ClientID: client.ID,
		Scopes:   sec.FilterScopes(client.Scope),
	}, nil
}
