// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"maps"
	"strings"

	"github.com/taibuivan/gatekeeper/internal/platform/validate"
)

// # Credential Normalizer

// Credentials maps raw field names to values, as sent by a caller.
type Credentials map[string]string

// Index is one index field and the value to match.
type Index struct {
	Field string
	Value string
}

/*
Normalize canonicalizes credentials so that lookups and writes agree.

Rules, applied in order:
 1. "username" moves to "email" when it is an address, otherwise to "mobile".
 2. "id" is renamed to "_id".
 3. Email is trimmed and lowercased.
 4. Mobile keeps its digits only. A leading country code is kept as sent.

Empty fields are not touched. The input map is never modified, and
Normalize(Normalize(c)) equals Normalize(c).
*/
func Normalize(credentials Credentials) Credentials {
	normalized := maps.Clone(credentials)
	if normalized == nil {
		normalized = Credentials{}
	}

	if username := normalized[FieldUsername]; username != "" {
		if validate.IsEmail(strings.TrimSpace(username)) {
			normalized[FieldEmail] = username
		} else {
			normalized[FieldMobile] = username
		}
		delete(normalized, FieldUsername)
	}

	if id := normalized[FieldAliasID]; id != "" {
		normalized[FieldID] = id
		delete(normalized, FieldAliasID)
	}

	if email := normalized[FieldEmail]; email != "" {
		normalized[FieldEmail] = NormalizeEmail(email)
	}

	if mobile := normalized[FieldMobile]; mobile != "" {
		normalized[FieldMobile] = NormalizeMobile(mobile)
	}

	return normalized
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// NormalizeMobile strips every non-digit character.
func NormalizeMobile(mobile string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, mobile)
}

// Indexes returns the non-empty index fields of already normalized
// credentials, in [IndexFields] order.
func (credentials Credentials) Indexes() []Index {
	var indexes []Index
	for _, field := range IndexFields {
		if value := strings.TrimSpace(credentials[field]); value != "" {
			indexes = append(indexes, Index{Field: field, Value: value})
		}
	}
	return indexes
}
