// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"

	"github.com/taibuivan/gatekeeper/internal/platform/apperr"
)

// # Scopes

const (
	// ScopeUser grants access to member-facing endpoints.
	ScopeUser = "user"

	// ScopeRoleStaff is granted to tokens of staff members.
	ScopeRoleStaff = "role:staff"

	// ScopeRoleAdmin is granted to tokens of administrators.
	ScopeRoleAdmin = "role:admin"

	// ScopeAdmin grants privileged application access.
	ScopeAdmin = "admin"
)

// Scopes is the closed set of scope names and their descriptions.
var Scopes = map[string]string{
	ScopeUser:      "Allows actions to be made on a user's behalf.",
	ScopeRoleStaff: "Allows this client to act as a staff member.",
	ScopeRoleAdmin: "Allows this client to act as an administrator.",
	ScopeAdmin:     "Grant administrative privileges to this token.",
}

// IsKnownScope reports whether name belongs to [Scopes].
func IsKnownScope(name string) bool {
	_, ok := Scopes[name]
	return ok
}

// FilterScopes drops unknown and duplicate scope names, keeping input order.
func FilterScopes(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if IsKnownScope(name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// IntersectScopes returns the known scopes present in both requested and allowed.
//
// An empty request yields every known scope in allowed.
func IntersectScopes(requested, allowed []string) []string {
	allowed = FilterScopes(allowed)
	if len(requested) == 0 {
		return allowed
	}

	out := make([]string, 0, len(requested))
	for _, name := range FilterScopes(requested) {
		if slices.Contains(allowed, name) {
			out = append(out, name)
		}
	}
	return out
}

// # Scope Gate

// Gate checks that the principal was granted the required scope.
func Gate(principal *Principal, required string) error {
	if principal == nil {
		return apperr.Unauthorized("Unauthenticated.")
	}
	if !principal.HasScope(required) {
		return apperr.Forbidden("Requires the `" + required + "` scope.")
	}
	return nil
}
