// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth holds the signed-in identity of a browser session: login,
// logout, rehydration of a stored token, and the route guard decision.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/quizzer/internal/apiclient"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/session"
)

var (
	// ErrNoSession is returned by SetToken when no user is signed in.
	ErrNoSession = errors.New("auth: no active session")

	// ErrMissingToken is returned by SetUser when a user is given without a token.
	ErrMissingToken = errors.New("auth: user without token")
)

// State is the lifecycle position of a Context.
type State int

// Context states.
const (
	StateRehydrating State = iota
	StateUnauthenticated
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateRehydrating:
		return "rehydrating"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// API is the part of the quiz API the Context needs.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResult, error)
	CurrentUser(ctx context.Context, token string, id int64) (*model.User, error)
}

// Options configures a Context.
type Options struct {
	API    API
	Store  session.Store
	Logger *slog.Logger

	// Users caches revalidated users by token. Optional.
	Users    *cache.TypedCache[model.User]
	UsersTTL time.Duration
}

// Snapshot is a consistent read of a Context.
type Snapshot struct {
	State State
	User  *model.User
	Token string
}

// Context is the single source of truth for who is signed in within one
// browser session. The in-memory state is authoritative; the Store mirrors it.
type Context struct {
	api      API
	store    session.Store
	logger   *slog.Logger
	users    *cache.TypedCache[model.User]
	usersTTL time.Duration

	mu     sync.Mutex
	state  State
	user   *model.User
	token  string
	errMsg string

	initOnce sync.Once
	initErr  error
}

// New creates a Context in the Rehydrating state. Call Init before use.
func New(opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		api:      opts.API,
		store:    opts.Store,
		logger:   logger,
		users:    opts.Users,
		usersTTL: opts.UsersTTL,
		state:    StateRehydrating,
	}
}

// Init restores the session from the store and revalidates the stored token
// against the API. It runs once; later calls return the first result.
//
// A definitive rejection of the token logs the session out and returns nil.
// If ctx ends before the API answers, the Context stays Rehydrating and the
// context error is returned.
func (c *Context) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.rehydrate(ctx)
	})
	return c.initErr
}

func (c *Context) rehydrate(ctx context.Context) error {
	snap, err := c.store.Load(ctx)
	if snap.Token == "" {
		if err != nil {
			c.logger.Warn("failed to load session", "error", err)
		}
		c.setState(StateUnauthenticated)
		return nil
	}

	if err != nil || snap.User == nil || snap.User.ID <= 0 {
		c.logger.Warn("stored session has no usable user, logging out", "error", err)
		return c.Logout(ctx)
	}

	c.mu.Lock()
	c.user = cloneUser(snap.User)
	c.token = snap.Token
	c.mu.Unlock()

	if cached, ok := c.cachedUser(ctx, snap.Token); ok && cached.ID == snap.User.ID {
		return c.commitRevalidated(ctx, snap, cached)
	}

	user, err := c.api.CurrentUser(ctx, snap.Token, snap.User.ID)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug("session revalidation interrupted", "error", err)
			return ctx.Err()
		}
		c.logger.Info("stored token rejected, logging out", "user_id", snap.User.ID, "error", err)
		return c.Logout(ctx)
	}

	if c.users != nil {
		if err := c.users.SetWithTTL(ctx, userCacheKey(snap.Token), user, c.usersTTL); err != nil {
			c.logger.Warn("failed to cache revalidated user", "error", err)
		}
	}
	return c.commitRevalidated(ctx, snap, user)
}

// commitRevalidated installs the revalidated user, writing the store only
// when the record changed.
func (c *Context) commitRevalidated(ctx context.Context, stored session.Snapshot, user *model.User) error {
	if *user == *stored.User {
		c.mu.Lock()
		c.user = cloneUser(user)
		c.state = StateAuthenticated
		c.mu.Unlock()
		return nil
	}
	return c.SetUser(ctx, user, stored.Token)
}

// Login authenticates with the API and commits the returned session.
// On failure the previous state is kept and Err reports a readable message.
func (c *Context) Login(ctx context.Context, email, password string) error {
	c.mu.Lock()
	prev := c.state
	c.state = StateAuthenticating
	c.errMsg = ""
	c.mu.Unlock()

	res, err := c.api.Login(ctx, email, password)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		c.mu.Lock()
		c.state = prev
		if c.state == StateAuthenticating || c.state == StateRehydrating {
			c.state = StateUnauthenticated
		}
		c.errMsg = loginMessage(err)
		c.mu.Unlock()
		return fmt.Errorf("login: %w", err)
	}

	return c.SetUser(ctx, res.User, res.Token)
}

// SetUser replaces user and token together and mirrors them into the store.
// A nil user clears the token, which is the same as Logout.
func (c *Context) SetUser(ctx context.Context, user *model.User, token string) error {
	if user == nil {
		return c.Logout(ctx)
	}
	if token == "" {
		return ErrMissingToken
	}

	c.mu.Lock()
	oldToken := c.token
	c.user = cloneUser(user)
	c.token = token
	c.state = StateAuthenticated
	c.errMsg = ""
	c.mu.Unlock()

	if oldToken != "" && oldToken != token {
		c.forget(ctx, oldToken)
	}
	if err := c.store.Save(ctx, session.Snapshot{User: cloneUser(user), Token: token}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// SetToken replaces the token of the signed-in user. An empty token logs out.
func (c *Context) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return c.Logout(ctx)
	}

	c.mu.Lock()
	if c.user == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	oldToken := c.token
	c.token = token
	user := cloneUser(c.user)
	c.mu.Unlock()

	if oldToken != token {
		c.forget(ctx, oldToken)
	}
	if err := c.store.Save(ctx, session.Snapshot{User: user, Token: token}); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Logout clears the in-memory session, the store and any cached
// revalidation for the old token.
func (c *Context) Logout(ctx context.Context) error {
	c.mu.Lock()
	oldToken := c.token
	c.user = nil
	c.token = ""
	c.state = StateUnauthenticated
	c.mu.Unlock()

	if oldToken != "" {
		c.forget(ctx, oldToken)
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Snapshot returns state, user and token read together.
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, User: cloneUser(c.user), Token: c.token}
}

// User returns a copy of the signed-in user, or nil.
func (c *Context) User() *model.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneUser(c.user)
}

// Token returns the bearer token, or "".
func (c *Context) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a rehydration or login is outstanding.
func (c *Context) Loading() bool {
	s := c.State()
	return s == StateRehydrating || s == StateAuthenticating
}

// Err returns the message of the last failed login, or "".
func (c *Context) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Context) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Context) cachedUser(ctx context.Context, token string) (*model.User, bool) {
	if c.users == nil {
		return nil, false
	}
	return c.users.Get(ctx, userCacheKey(token))
}

func (c *Context) forget(ctx context.Context, token string) {
	if c.users == nil || token == "" {
		return
	}
	if err := c.users.Delete(ctx, userCacheKey(token)); err != nil {
		c.logger.Warn("failed to drop cached user", "error", err)
	}
}

// userCacheKey derives the cache key from a token without storing the token.
func userCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:user:" + hex.EncodeToString(sum[:])
}

func loginMessage(err error) string {
	var httpErr *apiclient.HTTPError
	switch {
	case errors.As(err, &httpErr) && httpErr.Message != "":
		return httpErr.Message
	case errors.Is(err, apiclient.ErrUnauthorized):
		return "Invalid email or password"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Login timed out. Please try again."
	default:
		return apiclient.Message(err)
	}
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
