// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Full administrative access
	RoleAdmin UserRole = "admin"

	// Staff members can read and edit any member's record
	RoleStaff UserRole = "staff"

	// Default role for members
	RoleUser UserRole = "user"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {
	switch r {
	case RoleAdmin:
		return 30
	case RoleStaff:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}

// Roles lists the assignable roles in ascending order.
func Roles() []string {
	return []string{string(RoleUser), string(RoleStaff), string(RoleAdmin)}
}
