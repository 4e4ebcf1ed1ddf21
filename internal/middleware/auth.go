// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for session restoration,
// route guards, CSRF, security headers and login throttling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quizzer/internal/auth"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/session"
)

// DefaultRevalidateTimeout bounds the token check made while restoring a session.
const DefaultRevalidateTimeout = 3 * time.Second

// WaitRefreshSeconds is how soon the loading page reloads itself.
const WaitRefreshSeconds = 2

// SessionConfig configures LoadSession.
type SessionConfig struct {
	SessionManager    *scs.SessionManager
	API               auth.API
	Users             *cache.TypedCache[model.User]
	UsersTTL          time.Duration
	RevalidateTimeout time.Duration
	TokenCookie       session.TokenCookie
	Logger            *slog.Logger
}

// LoadSession builds the request's auth.Context from the browser session and
// revalidates the stored token. It must run inside SessionManager.LoadAndSave.
func LoadSession(cfg SessionConfig) func(http.Handler) http.Handler {
	if cfg.RevalidateTimeout <= 0 {
		cfg.RevalidateTimeout = DefaultRevalidateTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.New(auth.Options{
				API:      cfg.API,
				Store:    session.NewRequestStore(cfg.SessionManager, w, cfg.TokenCookie),
				Logger:   cfg.Logger,
				Users:    cfg.Users,
				UsersTTL: cfg.UsersTTL,
			})

			ctx, cancel := context.WithTimeout(r.Context(), cfg.RevalidateTimeout)
			if err := ac.Init(ctx); err != nil {
				cfg.Logger.Info("session revalidation interrupted", "error", err, "path", r.URL.Path)
			}
			cancel()

			next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
		})
	}
}

// GetAuth returns the request's auth.Context, or nil outside LoadSession.
func GetAuth(r *http.Request) *auth.Context {
	return auth.FromContext(r.Context())
}

// GetUser returns the signed-in user, or nil.
func GetUser(r *http.Request) *model.User {
	if ac := GetAuth(r); ac != nil {
		return ac.User()
	}
	return nil
}

// GetUserIDPtr returns a pointer to the signed-in user's id, or nil.
// Useful for optional user ID parameters in event logging.
func GetUserIDPtr(r *http.Request) *int64 {
	if user := GetUser(r); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// RequireRole guards a route group. While the session is still being
// restored wait answers with a self-refreshing page; unauthenticated users
// go to the login page and users of another role to their own home.
// An empty role admits any signed-in user.
func RequireRole(role model.Role, wait http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var snap auth.Snapshot
			if ac := GetAuth(r); ac != nil {
				snap = ac.Snapshot()
			} else {
				snap.State = auth.StateUnauthenticated
			}

			d := auth.Decide(snap, role)
			switch d.Kind {
			case auth.Allow:
				next.ServeHTTP(w, r)
			case auth.Wait:
				w.Header().Set("Refresh", strconv.Itoa(WaitRefreshSeconds))
				w.Header().Set("Retry-After", strconv.Itoa(WaitRefreshSeconds))
				if wait == nil {
					http.Error(w, "Restoring session, please retry", http.StatusServiceUnavailable)
					return
				}
				wait.ServeHTTP(w, r)
			default:
				http.Redirect(w, r, d.Location, http.StatusSeeOther)
			}
		})
	}
}

// RedirectIfAuthenticated sends signed-in users from the login and register
// pages to their role home.
func RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ac := GetAuth(r); ac != nil {
			snap := ac.Snapshot()
			if snap.State == auth.StateAuthenticated && snap.User != nil {
				// Unknown roles have no home; let them sign in again.
				if home := auth.HomeFor(snap.User.Role); home != auth.LoginPath {
					http.Redirect(w, r, home, http.StatusSeeOther)
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}
