// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
)

// # Identity Resolver

// Resolver finds the single user a set of credentials points at.
type Resolver struct {
	users UserRepository
}

// NewResolver creates a resolver over the given repository.
func NewResolver(users UserRepository) *Resolver {
	return &Resolver{users: users}
}

/*
Resolve returns the one user matching any supplied index field.

Description: Credentials are normalized first. Without any index field no
query runs. Zero matches and several matches both yield nil; a caller that
must tell them apart resolves again with a single field.

Parameters:
  - ctx: context.Context
  - credentials: Credentials (raw, normalized here)

Returns:
  - *User: The match, or nil
  - error: Database failures only
*/
func (resolver *Resolver) Resolve(ctx context.Context, credentials Credentials) (*User, error) {
	indexes := Normalize(credentials).Indexes()
	if len(indexes) == 0 {
		return nil, nil
	}

	matches, err := resolver.users.FindByIndexes(ctx, indexes, resolveLimit)
	if err != nil {
		return nil, err
	}

	if len(matches) != 1 {
		return nil, nil
	}
	return matches[0], nil
}

// ResolveOrFail is [Resolver.Resolve] with apperr.NotFound in place of nil.
func (resolver *Resolver) ResolveOrFail(ctx context.Context, credentials Credentials) (*User, error) {
	user, err := resolver.Resolve(ctx, credentials)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}
