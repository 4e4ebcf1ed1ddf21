// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/quizzer/internal/model"
)

func TestLogin_AdminLandsOnDashboard(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)

	resp := app.get(t, RouteAdmin)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Dashboard")
	assert.Contains(t, resp.body, "Welcome back, Alice!")

	// The flash is shown once.
	resp = app.get(t, RouteAdmin)
	assert.NotContains(t, resp.body, "Welcome back")
}

func TestLogin_StudentLandsOnStudentHome(t *testing.T) {
	app := newTestApp(t)
	app.api.AddUser("s@b.com", "secret123", "Sam", model.RoleStudent)

	resp := app.login(t, "s@b.com", "secret123")
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteStudent, resp.location)

	resp = app.get(t, RouteStudent)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Welcome, Sam")

	resp = app.get(t, RouteAdmin+RouteFields)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteStudent, resp.location)
}

func TestLogin_WrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.api.AddUser(adminEmail, adminPassword, "Alice", model.RoleAdmin)

	resp := app.login(t, adminEmail, "nope")
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Contains(t, resp.body, "Sign in")

	resp = app.get(t, RouteAdmin)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)
}

func TestLogin_MissingFields(t *testing.T) {
	app := newTestApp(t)

	resp := app.post(t, RouteLogin, url.Values{"email": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Email is required")
	assert.Contains(t, resp.body, "Password is required")
	assert.Zero(t, app.api.CountRequests("POST /user/login"))
}

func TestLogin_UnknownRoleRefused(t *testing.T) {
	app := newTestApp(t)
	app.api.AddUser("g@b.com", "secret123", "Guest", model.Role("guest"))

	resp := app.login(t, "g@b.com", "secret123")
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Contains(t, resp.body, "no access to this console")

	resp = app.get(t, RouteAdmin)
	assert.Equal(t, RouteLogin, resp.location)
}

func TestLoginPage_RedirectsSignedInUser(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, RouteLogin)
	require.Equal(t, http.StatusOK, resp.status)

	app.signInAdmin(t)
	resp = app.get(t, RouteLogin)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteAdmin, resp.location)

	resp = app.get(t, RouteRoot)
	assert.Equal(t, RouteAdmin, resp.location)
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)

	resp := app.post(t, RouteLogout, nil)
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)

	resp = app.get(t, RouteAdmin)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)
}

func TestRevokedTokenEndsSession(t *testing.T) {
	app := newTestApp(t)
	app.signInAdmin(t)

	app.api.RevokeTokens()

	resp := app.get(t, RouteAdmin)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)
	form := url.Values{
		"user_name":        {"Bob"},
		"email":            {"bob@example.com"},
		"password":         {"Secret123"},
		"password_confirm": {"Secret123"},
	}

	resp := app.post(t, RouteRegister, form)
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, RouteLogin, resp.location)

	resp = app.get(t, RouteLogin)
	assert.Contains(t, resp.body, "Registration successful")

	resp = app.login(t, "bob@example.com", "Secret123")
	assert.Equal(t, RouteStudent, resp.location)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.api.AddUser("bob@example.com", "Secret123", "Bob", model.RoleStudent)

	resp := app.post(t, RouteRegister, url.Values{
		"user_name":        {"Bobby"},
		"email":            {"bob@example.com"},
		"password":         {"Secret123"},
		"password_confirm": {"Secret123"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Email already exists")
}

func TestRegister_Validation(t *testing.T) {
	app := newTestApp(t)

	resp := app.post(t, RouteRegister, url.Values{
		"user_name":        {"Bob"},
		"email":            {"not-an-email"},
		"password":         {"weak"},
		"password_confirm": {"weak"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "valid email")
	assert.Zero(t, app.api.CountRequests("POST /user"))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{30 * time.Second, "30 seconds"},
		{1 * time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{1 * time.Hour, "1 hour"},
		{2 * time.Hour, "2 hours"},
		{90 * time.Second, "1 minute"},
		{90 * time.Minute, "1 hour"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.want {
				t.Errorf("formatDuration(%v) = %q; want %q", tt.duration, got, tt.want)
			}
		})
	}
}
