// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity resolves who a caller is and proves it.

It owns the user record as seen by authentication: the credential normalizer,
the identity resolver, the password verifier with its one-way Drupal
migration, and the legacy session token issuer.

# Architecture

Entities and pure rules live in user.go and credentials.go. Storage sits
behind [UserRepository] and [LegacyTokenRepository]; the services
([Resolver], [Verifier], [Registrar]) depend only on those interfaces.
*/
package identity

import (
	"time"

	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Domain Entities

// User is an account as seen by the identity layer.
//
// Every index field is unique when set. Password holds a bcrypt hash and
// DrupalPassword the legacy hash, which exists only until the first
// successful login migrates it.
type User struct {
	ID                   string       `json:"id"`
	Email                string       `json:"email,omitempty"`
	Mobile               string       `json:"mobile,omitempty"`
	FacebookID           string       `json:"facebook_id,omitempty"`
	DrupalID             string       `json:"drupal_id,omitempty"`
	Password             string       `json:"-"`
	DrupalPassword       string       `json:"-"`
	Role                 sec.UserRole `json:"role"`
	FirstName            string       `json:"first_name,omitempty"`
	LastName             string       `json:"last_name,omitempty"`
	Birthdate            string       `json:"birthdate,omitempty"`
	Source               string       `json:"source,omitempty"`
	SourceDetail         string       `json:"source_detail,omitempty"`
	ParseInstallationIDs []string     `json:"parse_installation_ids,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// Index returns the value of the given index field, or "" when unset.
func (user *User) Index(field string) string {
	switch field {
	case FieldID:
		return user.ID
	case FieldEmail:
		return user.Email
	case FieldMobile:
		return user.Mobile
	case FieldFacebookID:
		return user.FacebookID
	case FieldDrupalID:
		return user.DrupalID
	}
	return ""
}

// SetIndex assigns the value of the given index field. The internal id is
// never reassigned.
func (user *User) SetIndex(field, value string) {
	switch field {
	case FieldEmail:
		user.Email = value
	case FieldMobile:
		user.Mobile = value
	case FieldFacebookID:
		user.FacebookID = value
	case FieldDrupalID:
		user.DrupalID = value
	}
}

// HasLegacyPassword reports whether the account still waits for migration.
func (user *User) HasLegacyPassword() bool {
	return user.Password == "" && user.DrupalPassword != ""
}

// LegacyToken is an opaque session token issued by the legacy login.
type LegacyToken struct {
	Key       string    `json:"key"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// # Field Identifiers

const (
	// FieldID is the internal identifier key. Callers may send it as "id".
	FieldID = "_id"

	FieldEmail      = "email"
	FieldMobile     = "mobile"
	FieldFacebookID = "facebook_id"
	FieldDrupalID   = "drupal_id"

	// FieldUsername holds either an email or a mobile number.
	FieldUsername = "username"

	// FieldAliasID is the public spelling of [FieldID].
	FieldAliasID = "id"

	FieldPassword = "password"
)

// IndexFields lists the unique lookup fields in resolution order.
var IndexFields = []string{FieldID, FieldEmail, FieldMobile, FieldFacebookID, FieldDrupalID}
