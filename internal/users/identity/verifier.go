// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/event"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Password Verifier

// Verifier checks plaintext passwords and migrates legacy hashes on the way.
type Verifier struct {
	users     UserRepository
	publisher event.Publisher

	// migrations collapses concurrent migrations of one user in this process.
	migrations singleflight.Group
}

// NewVerifier creates a verifier. A nil publisher discards events.
func NewVerifier(users UserRepository, publisher event.Publisher) *Verifier {
	if publisher == nil {
		publisher = event.Noop{}
	}
	return &Verifier{users: users, publisher: publisher}
}

/*
Verify reports whether credentials["password"] unlocks the user.

Description:
 1. A nil user fails.
 2. A matching bcrypt hash succeeds. The legacy hash is not consulted.
 3. With no bcrypt hash, a matching Drupal hash succeeds and is replaced by
    a bcrypt hash of the same plaintext, exactly once.
 4. Anything else fails.

Returns:
  - bool: Whether the password matches
  - error: Failure to persist a migration
*/
func (verifier *Verifier) Verify(ctx context.Context, user *User, credentials Credentials) (bool, error) {
	if user == nil {
		return false, nil
	}

	password := credentials[FieldPassword]

	if sec.CheckPasswordHash(password, user.Password) {
		return true, nil
	}

	if !user.HasLegacyPassword() || !sec.CheckDrupalPassword(password, user.DrupalPassword) {
		return false, nil
	}

	outcome, err := verifier.migrate(ctx, user.ID, password)
	if err != nil {
		return false, err
	}

	if !outcome.migrated {
		// The record changed under us; only its current hash counts.
		fresh, err := verifier.users.FindByID(ctx, user.ID)
		if err != nil {
			return false, fmt.Errorf("identity_verifier_reload_failed: %w", err)
		}
		if !sec.CheckPasswordHash(password, fresh.Password) {
			return false, nil
		}
		*user = *fresh
		return true, nil
	}

	user.Password = outcome.hash
	user.DrupalPassword = ""
	return true, nil
}

// migration is the shared result of one collapsed migration.
type migration struct {
	hash     string
	migrated bool
}

/*
migrate hashes password and swaps it in through the repository CAS.

Description: Callers racing on the same user share one bcrypt computation. A
lost CAS means the record was rewritten elsewhere, either by another login or
by a password change, so the caller must check against the stored hash.
*/
func (verifier *Verifier) migrate(ctx context.Context, userID, password string) (migration, error) {
	result, err, _ := verifier.migrations.Do(userID, func() (any, error) {
		hash, err := sec.HashPassword(password)
		if err != nil {
			return nil, err
		}

		migrated, err := verifier.users.MigrateLegacyPassword(ctx, userID, hash)
		if err != nil {
			return nil, err
		}

		if migrated {
			passwordMigrationsTotal.Inc()
			verifier.announce(ctx, userID)
		}
		return migration{hash: hash, migrated: migrated}, nil
	})
	if err != nil {
		return migration{}, fmt.Errorf("identity_verifier_migrate_failed: %w", err)
	}

	outcome := result.(migration)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "legacy_password_migrated",
		slog.String("user_id", userID),
		slog.Bool("won", outcome.migrated),
	)

	return outcome, nil
}

// announce publishes the migration event. Failures are logged only.
func (verifier *Verifier) announce(ctx context.Context, userID string) {
	evt, err := event.New("user.password_migrated", userID, "user", map[string]string{"user_id": userID})
	if err == nil {
		err = verifier.publisher.Publish(ctx, event.TopicUserPasswordMigrated, evt.WithCorrelationID(ctxutil.GetRequestID(ctx)))
	}
	if err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "event_publish_failed",
			slog.String("topic", event.TopicUserPasswordMigrated),
			slog.Any("error", err),
		)
	}
}
