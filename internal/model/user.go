// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared across the console:
// the signed-in User and the Field → Topic → Question catalog.
package model

import "strings"

// Role identifies which part of the console a user may access.
type Role string

// User roles.
const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// ParseRole maps a role string reported by the quiz API onto a Role.
// Plain accounts are reported as "user" and are treated as students.
// Unknown values map to the empty Role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "student", "user":
		return RoleStudent
	default:
		return ""
	}
}

// User is the identity held by a signed-in session.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Role     Role   `json:"role"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName returns the user name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return u.Email
}
