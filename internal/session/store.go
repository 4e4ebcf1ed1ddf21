// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quizzer/internal/model"
)

// ErrCorrupt is returned by Load when the stored user record cannot be decoded.
var ErrCorrupt = errors.New("session: corrupt user record")

// Snapshot is the persisted part of a session.
type Snapshot struct {
	User  *model.User
	Token string
}

// Empty reports whether the snapshot carries no token.
func (s Snapshot) Empty() bool {
	return s.Token == ""
}

// Store is the durable mirror of an authenticated session.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// TokenCookie configures the optional cookie that mirrors the bearer token.
type TokenCookie struct {
	Enabled bool
	Name    string
	Secure  bool
}

// DefaultTokenCookieName is the name of the token mirror cookie.
const DefaultTokenCookieName = "quizzer_token"

// RequestStore is a Store backed by the scs session of one HTTP request.
// The request context must have passed through SessionManager.LoadAndSave.
type RequestStore struct {
	sm     *scs.SessionManager
	w      http.ResponseWriter
	cookie TokenCookie
}

// NewRequestStore creates a store for the session carried by the current request.
func NewRequestStore(sm *scs.SessionManager, w http.ResponseWriter, cookie TokenCookie) *RequestStore {
	if cookie.Name == "" {
		cookie.Name = DefaultTokenCookieName
	}
	return &RequestStore{sm: sm, w: w, cookie: cookie}
}

// Load reads the stored user and token. A token without a decodable user
// is returned together with ErrCorrupt.
func (s *RequestStore) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Token: s.sm.GetString(ctx, KeyToken)}

	raw := s.sm.GetString(ctx, KeyUser)
	if raw == "" {
		return snap, nil
	}

	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	snap.User = &u
	return snap, nil
}

// Save writes the user and token. The session token is renewed whenever the
// bearer token changes.
func (s *RequestStore) Save(ctx context.Context, snap Snapshot) error {
	if snap.User == nil || snap.Token == "" {
		return s.Clear(ctx)
	}

	raw, err := json.Marshal(snap.User)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}

	if s.sm.GetString(ctx, KeyToken) != snap.Token {
		if err := s.sm.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
	}

	s.sm.Put(ctx, KeyUser, string(raw))
	s.sm.Put(ctx, KeyToken, snap.Token)
	s.setCookie(snap.Token, int(s.sm.Lifetime.Seconds()))
	return nil
}

// Clear removes the stored user and token and expires the token cookie.
func (s *RequestStore) Clear(ctx context.Context) error {
	hadToken := s.sm.Exists(ctx, KeyToken)

	s.sm.Remove(ctx, KeyUser)
	s.sm.Remove(ctx, KeyToken)
	s.setCookie("", -1)

	if hadToken {
		if err := s.sm.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
	}
	return nil
}

func (s *RequestStore) setCookie(value string, maxAge int) {
	if !s.cookie.Enabled || s.w == nil {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
