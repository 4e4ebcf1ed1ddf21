// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session persists the signed-in identity of each browser session.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Session keys.
const (
	KeyUser        = "auth_user"    // JSON-encoded model.User
	KeyToken       = "auth_token"   // raw bearer token
	KeyWorkspaceID = "workspace_id" // id of the catalog mirror workspace
)

// Lifetime is the absolute lifetime of a browser session.
const Lifetime = 24 * time.Hour

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = Lifetime
	sm.Cookie.Name = "quizzer_session"
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		// __Host- prefix pins the cookie to this host over HTTPS.
		sm.Cookie.Name = "__Host-quizzer_session"
	}

	return sm
}
