// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
	"github.com/taibuivan/gatekeeper/internal/platform/ctxutil"
	"github.com/taibuivan/gatekeeper/internal/platform/event"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/platform/validate"
	"github.com/taibuivan/gatekeeper/internal/users/identity"
	"github.com/taibuivan/gatekeeper/pkg/pointer"
)

// # Service Layer

// Service orchestrates user upserts and lookups.
type Service struct {
	users     identity.UserRepository
	resolver  *identity.Resolver
	registrar *identity.Registrar
	publisher event.Publisher
}

// NewService constructs a new [Service]. A nil publisher discards events.
func NewService(users identity.UserRepository, registrar *identity.Registrar, publisher event.Publisher) *Service {
	if publisher == nil {
		publisher = event.Noop{}
	}
	return &Service{
		users:     users,
		resolver:  identity.NewResolver(users),
		registrar: registrar,
		publisher: publisher,
	}
}

/*
Upsert creates a user, or updates the one matching any given index.

Description:
 1. Resolves the existing user by id, email, mobile and drupal_id.
 2. Refuses an existing match when input.Upsert is false.
 3. Normalizes and validates the merged record.
 4. Refuses to change an index that is already set.
 5. Persists, links a legacy profile on request, and publishes user.upserted.

Parameters:
  - context: context.Context
  - input: UpsertInput

Returns:
  - *identity.User: The stored user
  - bool: true when the user was created
  - error: Validation errors or storage failures
*/
func (service *Service) Upsert(context context.Context, input UpsertInput) (*identity.User, bool, error) {
	existing, err := service.resolver.Resolve(context, identity.Credentials{
		identity.FieldAliasID:  input.ID,
		identity.FieldEmail:    input.Email,
		identity.FieldMobile:   input.Mobile,
		identity.FieldDrupalID: input.DrupalID,
	})
	if err != nil {
		return nil, false, fmt.Errorf("account_service_upsert_failed: %w", err)
	}

	if existing != nil && !pointer.Fallback(input.Upsert, true) {
		return nil, false, validate.RequiredError("id", msgIndexExists)
	}

	if input.Email != "" {
		input.Email = identity.NormalizeEmail(input.Email)
	}
	if input.Mobile != "" {
		input.Mobile = identity.NormalizeMobile(input.Mobile)
	}

	if err := validateUpsert(input, existing); err != nil {
		return nil, false, err
	}

	if existing != nil {
		if err := guardIndexes(context, input, existing); err != nil {
			return nil, false, err
		}
	}

	created := existing == nil
	user := existing
	if created {
		user = &identity.User{}
	}

	if err := apply(user, input); err != nil {
		return nil, false, fmt.Errorf("account_service_upsert_failed: %w", err)
	}

	if created {
		err = service.users.Create(context, user)
	} else {
		err = service.users.Update(context, user)
	}
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("account_service_upsert_failed: %w", err)
	}

	if input.CreateDrupalUser && input.Password != "" && user.DrupalID == "" && service.registrar != nil {
		service.registrar.CreateLegacyAccount(context, user, input.Password)
	}

	ctxutil.GetLogger(context).InfoContext(context, "user_upserted",
		slog.String("user_id", user.ID),
		slog.Bool("created", created),
	)
	service.announce(context, user, created)

	return user, created, nil
}

// validateUpsert checks the fields of the record as it will be stored.
func validateUpsert(input UpsertInput, existing *identity.User) error {
	validator := &validate.Validator{}

	if input.Email != "" {
		validator.Email(identity.FieldEmail, input.Email)
	}
	if input.Mobile != "" {
		validator.Mobile(identity.FieldMobile, input.Mobile, mobileMinDigits)
	}
	if input.FacebookID != "" {
		validator.Numeric(identity.FieldFacebookID, input.FacebookID)
	}
	if input.Role != "" {
		validator.OneOf("role", input.Role, sec.Roles()...)
	}
	if input.Birthdate != "" {
		validator.Date("birthdate", input.Birthdate)
	}

	email, mobile := input.Email, input.Mobile
	if existing != nil {
		email = firstNonEmpty(email, existing.Email)
		mobile = firstNonEmpty(mobile, existing.Mobile)
	}
	validator.Custom(identity.FieldEmail, email == "" && mobile == "", msgEmailOrMobile)

	return validator.Err()
}

// guardIndexes refuses to overwrite an index that already holds another value.
func guardIndexes(context context.Context, input UpsertInput, existing *identity.User) error {
	requested := map[string]string{
		identity.FieldEmail:      input.Email,
		identity.FieldMobile:     input.Mobile,
		identity.FieldFacebookID: input.FacebookID,
		identity.FieldDrupalID:   input.DrupalID,
	}

	for _, field := range identity.IndexFields {
		value, ok := requested[field]
		if !ok || value == "" {
			continue
		}

		current := existing.Index(field)
		if current == "" || current == value {
			continue
		}

		upsertConflictsTotal.Inc()
		ctxutil.GetLogger(context).WarnContext(context, "upsert_index_conflict",
			slog.String("user_id", existing.ID),
			slog.String("index", field),
		)
		return validate.RequiredError(field, msgIndexConflict)
	}

	return nil
}

// apply copies the non-empty input fields onto user.
func apply(user *identity.User, input UpsertInput) error {
	for field, value := range map[string]string{
		identity.FieldEmail:      input.Email,
		identity.FieldMobile:     input.Mobile,
		identity.FieldFacebookID: input.FacebookID,
		identity.FieldDrupalID:   input.DrupalID,
	} {
		if value != "" {
			user.SetIndex(field, value)
		}
	}

	if input.Password != "" {
		hash, err := sec.HashPassword(input.Password)
		if err != nil {
			return err
		}
		user.Password = hash
		user.DrupalPassword = ""
	}

	if input.Role != "" {
		user.Role = sec.UserRole(input.Role)
	}

	user.FirstName = firstNonEmpty(input.FirstName, user.FirstName)
	user.LastName = firstNonEmpty(input.LastName, user.LastName)
	user.Birthdate = firstNonEmpty(input.Birthdate, user.Birthdate)
	user.Source = firstNonEmpty(input.Source, user.Source)
	user.SourceDetail = firstNonEmpty(input.SourceDetail, user.SourceDetail)

	if input.ParseInstallationIDs != nil {
		user.ParseInstallationIDs = input.ParseInstallationIDs
	}

	// Back-filled records keep the creation date of the source system.
	if input.CreatedAt != nil {
		user.CreatedAt = *input.CreatedAt
	}

	return nil
}

// announce publishes user.upserted. Failures are logged only.
func (service *Service) announce(context context.Context, user *identity.User, created bool) {
	evt, err := event.New("user.upserted", user.ID, "user", map[string]any{
		"user_id": user.ID,
		"created": created,
	})
	if err == nil {
		err = service.publisher.Publish(context, event.TopicUserUpserted, evt.WithCorrelationID(ctxutil.GetRequestID(context)))
	}
	if err != nil {
		ctxutil.GetLogger(context).WarnContext(context, "event_publish_failed",
			slog.String("topic", event.TopicUserUpserted),
			slog.Any("error", err),
		)
	}
}

// # Lookups

/*
Show resolves a user by a single index term.

Parameters:
  - context: context.Context
  - term: string (id, _id, email, mobile, drupal_id or facebook_id)
  - value: string

Returns:
  - *identity.User: The match
  - error: apperr.NotFound for an unknown term or no single match
*/
func (service *Service) Show(context context.Context, term, value string) (*identity.User, error) {
	field, ok := lookupTerms[term]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return service.resolver.ResolveOrFail(context, identity.Credentials{field: value})
}

// Profile returns the user with the given id.
func (service *Service) Profile(context context.Context, userID string) (*identity.User, error) {
	return service.users.FindByID(context, userID)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
