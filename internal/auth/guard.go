// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import "github.com/olegiv/quizzer/internal/model"

// Console routes the guard redirects to.
const (
	LoginPath   = "/login"
	AdminHome   = "/admin"
	StudentHome = "/student"
)

// DecisionKind is the outcome of a guard check.
type DecisionKind int

// Guard outcomes.
const (
	Allow DecisionKind = iota
	Wait
	Redirect
)

// Decision tells a protected page what to do.
type Decision struct {
	Kind     DecisionKind
	Location string // set for Redirect
}

// Decide checks a session snapshot against the role a page requires.
// An empty required role admits any signed-in user.
func Decide(snap Snapshot, required model.Role) Decision {
	if snap.State == StateRehydrating {
		return Decision{Kind: Wait}
	}
	if snap.Token == "" || snap.User == nil {
		return Decision{Kind: Redirect, Location: LoginPath}
	}
	if required != "" && snap.User.Role != required {
		return Decision{Kind: Redirect, Location: HomeFor(snap.User.Role)}
	}
	return Decision{Kind: Allow}
}

// HomeFor returns the landing page of a role.
func HomeFor(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return AdminHome
	case model.RoleStudent:
		return StudentHome
	default:
		return LoginPath
	}
}
