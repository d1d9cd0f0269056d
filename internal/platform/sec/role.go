// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"slices"
	"strings"
)

// # User Roles

// Role represents the authorization level granted to an account.
//
// The role set is closed: only [RoleUser] and [RoleAdmin] exist.
type Role string

const (
	// Default role for standard registered accounts
	RoleUser Role = "USER"

	// Account administration (update, deactivate, delete other accounts)
	RoleAdmin Role = "ADMIN"
)

// Roles lists every valid role in declaration order.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// ParseRole maps a raw string onto the closed role set.
// Matching is case-insensitive; surrounding whitespace is ignored.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	return slices.Contains(Roles(), r)
}

// IsAdmin reports whether r grants administrative rights.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// RoleNames returns [Roles] as plain strings, for messages and validation.
func RoleNames() []string {
	names := make([]string, 0, len(Roles()))
	for _, role := range Roles() {
		names = append(names, string(role))
	}
	return names
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
