// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"
	"sync"
)

// # Principal

// Scheme names the credential a principal was authenticated with.
type Scheme string

const (
	// SchemeLegacy is the static API key header, optionally with a session token.
	SchemeLegacy Scheme = "legacy"

	// SchemeOAuth is an RS256 bearer access token.
	SchemeOAuth Scheme = "oauth"
)

// Principal is the authenticated caller of one request.
//
// UserID is empty for application-only credentials.
type Principal struct {
	Scheme   Scheme
	ClientID string
	UserID   string
	Role     UserRole
	Scopes   []string
}

// HasScope reports whether the scope was granted.
func (principal *Principal) HasScope(scope string) bool {
	return principal != nil && slices.Contains(principal.Scopes, scope)
}

// HasUser reports whether the principal acts for an end user.
func (principal *Principal) HasUser() bool {
	return principal != nil && principal.UserID != ""
}

// Session holds the principal of the current request.
//
// The guard installs one per request; the legacy login replaces its principal
// once a user has been authenticated mid-request.
type Session struct {
	mu        sync.RWMutex
	principal *Principal
}

// NewSession returns a session holding principal, which may be nil.
func NewSession(principal *Principal) *Session {
	return &Session{principal: principal}
}

// Principal returns the current principal or nil.
func (session *Session) Principal() *Principal {
	if session == nil {
		return nil
	}
	session.mu.RLock()
	defer session.mu.RUnlock()
	return session.principal
}

// Set replaces the current principal.
func (session *Session) Set(principal *Principal) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.principal = principal
}
