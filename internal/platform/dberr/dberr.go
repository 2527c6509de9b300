// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// The resource name is used for the not-found message, e.g. Wrap(err, "User").
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	// 2. Unique index collisions surface as validation errors on the offending column
	if field, ok := UniqueViolation(err); ok {
		return apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   field,
			Message: "The " + field + " has already been taken.",
		})
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

// UniqueViolation reports whether err is a unique constraint violation (SQLSTATE 23505).
//
// The returned field is derived from the constraint name, which follows the
// "<table>_<column>_key" convention used by the migrations.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return "", false
	}
	return columnFromConstraint(pgErr.ConstraintName), true
}

// columnFromConstraint maps "account_email_key" to "email".
func columnFromConstraint(name string) string {
	for column, constraint := range uniqueConstraints {
		if constraint == name {
			return column
		}
	}
	return "id"
}

// uniqueConstraints lists the partial unique indexes declared by the migrations.
var uniqueConstraints = map[string]string{
	"email":         "account_email_key",
	"mobile":        "account_mobile_key",
	"facebook_id":   "account_facebookid_key",
	"drupal_id":     "account_drupalid_key",
	"client_secret": "client_secret_key",
	"app_id":        "client_pkey",
}
