// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages user records on behalf of trusted clients.

It upserts users by any of their index fields, looks them up by a single
index, and serves the authenticated user's own profile.

# Architecture

  - Storage: reuses the identity repositories; this package owns no tables.
  - Security: writes require the admin scope, lookups the user scope.
*/
package account

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// # Inputs

// UpsertInput is the body of a user upsert. Empty fields are left untouched.
type UpsertInput struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	Mobile               string     `json:"mobile"`
	FacebookID           string     `json:"facebook_id"`
	DrupalID             string     `json:"drupal_id"`
	Password             string     `json:"password"`
	Role                 string     `json:"role"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Birthdate            string     `json:"birthdate"`
	Source               string     `json:"source"`
	SourceDetail         string     `json:"source_detail"`
	ParseInstallationIDs []string   `json:"parse_installation_ids"`
	CreatedAt            *time.Time `json:"created_at"`

	// Upsert false refuses to touch an existing user. Nil means true.
	Upsert *bool `json:"upsert"`

	// CreateDrupalUser links a legacy profile when a password is given.
	CreateDrupalUser bool `json:"create_drupal_user"`
}

// # Constants

const (
	// mobileMinDigits is the shortest accepted phone number.
	mobileMinDigits = 10

	msgIndexExists   = "A record matching one of the given indexes already exists."
	msgIndexConflict = "Cannot upsert an existing index."
	msgEmailOrMobile = "Either an email or a mobile number is required."
)

// lookupTerms maps route terms to index fields.
var lookupTerms = map[string]string{
	"id":          "id",
	"_id":         "_id",
	"email":       "email",
	"mobile":      "mobile",
	"drupal_id":   "drupal_id",
	"facebook_id": "facebook_id",
}

// # Metrics

var upsertConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_upsert_conflicts_total",
	Help: "Upserts refused for changing an index that was already set",
})
