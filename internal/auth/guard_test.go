// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"testing"

	"github.com/olegiv/quizzer/internal/model"
)

func TestDecide(t *testing.T) {
	admin := &model.User{ID: 1, Role: model.RoleAdmin}
	student := &model.User{ID: 2, Role: model.RoleStudent}
	nobody := &model.User{ID: 3}

	tests := []struct {
		name     string
		snap     Snapshot
		required model.Role
		want     Decision
	}{
		{"rehydrating waits", Snapshot{State: StateRehydrating, User: admin, Token: "t"}, model.RoleAdmin, Decision{Kind: Wait}},
		{"no token", Snapshot{State: StateUnauthenticated}, model.RoleAdmin, Decision{Kind: Redirect, Location: LoginPath}},
		{"admin allowed", Snapshot{State: StateAuthenticated, User: admin, Token: "t"}, model.RoleAdmin, Decision{Kind: Allow}},
		{"student on admin page", Snapshot{State: StateAuthenticated, User: student, Token: "t"}, model.RoleAdmin, Decision{Kind: Redirect, Location: StudentHome}},
		{"admin on student page", Snapshot{State: StateAuthenticated, User: admin, Token: "t"}, model.RoleStudent, Decision{Kind: Redirect, Location: AdminHome}},
		{"unknown role", Snapshot{State: StateAuthenticated, User: nobody, Token: "t"}, model.RoleAdmin, Decision{Kind: Redirect, Location: LoginPath}},
		{"any role", Snapshot{State: StateAuthenticated, User: student, Token: "t"}, "", Decision{Kind: Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.snap, tt.required); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	if StateAuthenticating.String() != "authenticating" {
		t.Errorf("got %q", StateAuthenticating.String())
	}
	if State(42).String() != "State(42)" {
		t.Errorf("got %q", State(42).String())
	}
}
