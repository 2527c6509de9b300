// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/gatekeeper/internal/legacyprofile"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Registrar

// ProfileService is the legacy profile collaborator.
type ProfileService interface {
	Register(ctx context.Context, account legacyprofile.Account) (string, error)
	UIDByEmail(ctx context.Context, email string) (string, error)
}

// Registrar issues legacy session tokens and links accounts to their legacy
// profiles.
type Registrar struct {
	users    UserRepository
	tokens   LegacyTokenRepository
	profiles ProfileService
	tokenTTL time.Duration
}

// NewRegistrar creates a registrar. A nil profiles service disables
// [Registrar.CreateLegacyAccount].
func NewRegistrar(users UserRepository, tokens LegacyTokenRepository, profiles ProfileService, tokenTTL time.Duration) *Registrar {
	return &Registrar{
		users:    users,
		tokens:   tokens,
		profiles: profiles,
		tokenTTL: tokenTTL,
	}
}

/*
Login issues an opaque session token for user and makes user the current
principal of the request.

Description: The principal keeps the client and scopes the request was
authenticated with; only the user changes.

Returns:
  - *LegacyToken: The raw token, returned once
  - error: Token generation or storage failures
*/
func (registrar *Registrar) Login(ctx context.Context, user *User) (*LegacyToken, error) {
	key, err := sec.GenerateSecureToken(LegacyTokenLength)
	if err != nil {
		return nil, fmt.Errorf("identity_registrar_login_failed: %w", err)
	}

	if err := registrar.tokens.Set(ctx, key, user.ID, registrar.tokenTTL); err != nil {
		return nil, fmt.Errorf("identity_registrar_login_failed: %w", err)
	}

	if session := ctxutil.GetSession(ctx); session != nil {
		principal := sec.Principal{Scheme: sec.SchemeLegacy}
		if current := session.Principal(); current != nil {
			principal = *current
		}
		principal.UserID = user.ID
		principal.Role = user.Role
		session.Set(&principal)
	}

	return &LegacyToken{
		Key:       key,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(registrar.tokenTTL),
	}, nil
}

// Logout deletes a session token. Unknown tokens are ignored.
func (registrar *Registrar) Logout(ctx context.Context, token string) error {
	return registrar.tokens.Delete(ctx, token)
}

/*
UserForToken returns the owner of a session token.

Returns:
  - *User: The owning account
  - error: apperr.NotFound for unknown tokens or deleted accounts
*/
func (registrar *Registrar) UserForToken(ctx context.Context, token string) (*User, error) {
	userID, err := registrar.tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return registrar.users.FindByID(ctx, userID)
}

// ResolveSessionToken adapts [Registrar.UserForToken] for the authentication guard.
func (registrar *Registrar) ResolveSessionToken(ctx context.Context, token string) (string, sec.UserRole, error) {
	user, err := registrar.UserForToken(ctx, token)
	if err != nil {
		return "", "", err
	}
	return user.ID, user.Role, nil
}

/*
CreateLegacyAccount registers user with the legacy profile service and stores
the returned Drupal id.

Description: Best effort. When the service refuses because the profile
exists, the uid is looked up by email instead. Every failure is logged and
swallowed; the account itself is never rolled back.

Returns:
  - bool: Whether a Drupal id was linked
*/
func (registrar *Registrar) CreateLegacyAccount(ctx context.Context, user *User, password string) bool {
	if registrar.profiles == nil || user.DrupalID != "" {
		return false
	}

	logger := ctxutil.GetLogger(ctx).With(slog.String("user_id", user.ID))

	uid, err := registrar.profiles.Register(ctx, legacyprofile.Account{
		Email:     user.Email,
		Mobile:    user.Mobile,
		Password:  password,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Birthdate: user.Birthdate,
		Source:    user.Source,
	})
	if errors.Is(err, legacyprofile.ErrForbidden) {
		uid, err = registrar.profiles.UIDByEmail(ctx, user.Email)
	}
	if err != nil {
		logger.WarnContext(ctx, "legacy_profile_link_failed", slog.Any("error", err))
		return false
	}

	if err := registrar.users.SetDrupalID(ctx, user.ID, uid); err != nil {
		logger.WarnContext(ctx, "legacy_profile_link_failed", slog.String("drupal_id", uid), slog.Any("error", err))
		return false
	}

	user.DrupalID = uid
	logger.InfoContext(ctx, "legacy_profile_linked", slog.String("drupal_id", uid))
	return true
}
