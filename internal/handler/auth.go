// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quizzer/internal/apiclient"
	"github.com/olegiv/quizzer/internal/auth"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/render"
	"github.com/olegiv/quizzer/internal/service"
	"github.com/olegiv/quizzer/internal/util"
)

// Registrar creates student accounts on the quiz API.
type Registrar interface {
	Register(ctx context.Context, in apiclient.RegisterInput) error
}

// AuthHandler handles login, logout and registration.
type AuthHandler struct {
	sessionDeps
	registrar       Registrar
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, c cache.Cacher, reg Registrar, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		sessionDeps:     sessionDeps{renderer: renderer, sm: sm, cache: c},
		registrar:       reg,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
	}
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "auth/login.html", render.TemplateData{
		Title: "Sign in",
		Form:  map[string]string{},
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	form := map[string]string{"email": email}

	errs := make(map[string]string)
	if email == "" {
		errs["email"] = "Email is required"
	}
	if password == "" {
		errs["password"] = "Password is required"
	}
	if len(errs) > 0 {
		renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, "auth/login.html", render.TemplateData{
			Title: "Sign in", Form: form, Errors: errs,
		})
		return
	}

	clientIP := util.ClientIP(r)
	userAgent := r.UserAgent()

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", nil, clientIP, userAgent, map[string]any{"email": email})
			flashError(w, r, h.renderer, redirectLogin, fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	ac := middleware.GetAuth(r)
	if ac == nil {
		logAndInternalError(w, "login without session context")
		return
	}

	if err := ac.Login(r.Context(), email, password); err != nil {
		h.loginFailed(w, r, ac, email, form, err)
		return
	}

	user := ac.User()
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	home := auth.HomeFor(user.Role)
	if home == auth.LoginPath {
		// No console area serves this role.
		_ = ac.Logout(r.Context())
		slog.Warn("login with unsupported role", "user_id", user.ID, "role", user.Role)
		renderPage(w, r, h.renderer, http.StatusForbidden, "auth/login.html", render.TemplateData{
			Title: "Sign in", Form: form,
			Flash: "Your account has no access to this console.", FlashType: flashTypeError,
		})
		return
	}

	// A new identity never sees the previous one's mirrors.
	h.dropWorkspace(r)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", &user.ID, clientIP, userAgent, map[string]any{"email": user.Email})

	flashAndRedirect(w, r, h.renderer, home, "Welcome back, "+user.DisplayName()+"!", flashTypeSuccess)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, ac *auth.Context, email string, form map[string]string, err error) {
	var transportErr *apiclient.TransportError
	if errors.As(err, &transportErr) {
		slog.Warn("quiz service unavailable during login", "error", err)
		renderPage(w, r, h.renderer, http.StatusBadGateway, "auth/login.html", render.TemplateData{
			Title: "Sign in", Form: form, Flash: ac.Err(), FlashType: flashTypeError,
		})
		return
	}

	clientIP := util.ClientIP(r)
	slog.Debug("login rejected", "email", email, "error", err)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed", nil, clientIP, r.UserAgent(), map[string]any{"email": email})

	message := ac.Err()
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts", nil, clientIP, r.UserAgent(), map[string]any{"email": email, "duration": lockDuration.String()})
			message = fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration))
		} else if remaining := h.loginProtection.GetRemainingAttempts(email); remaining <= 3 && remaining > 0 {
			message = fmt.Sprintf("%s. %d attempts remaining.", strings.TrimSuffix(message, "."), remaining)
		}
	}

	renderPage(w, r, h.renderer, http.StatusUnauthorized, "auth/login.html", render.TemplateData{
		Title: "Sign in", Form: form, Flash: message, FlashType: flashTypeError,
	})
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDPtr(r)

	if userID != nil {
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", userID, util.ClientIP(r), r.UserAgent(), nil)
	}

	if ac := middleware.GetAuth(r); ac != nil {
		if err := ac.Logout(r.Context()); err != nil {
			slog.Error("failed to clear session", "error", err)
		}
	}
	h.dropWorkspace(r)

	if err := h.sm.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	flashAndRedirect(w, r, h.renderer, redirectLogin, "You have been logged out.", flashTypeInfo)
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "auth/register.html", render.TemplateData{
		Title: "Register",
		Form:  map[string]string{},
	})
}

// Register handles the registration form submission.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, RouteRegister) {
		return
	}

	reg := auth.Registration{
		UserName:        strings.TrimSpace(r.PostFormValue("user_name")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	data := render.TemplateData{
		Title: "Register",
		Form:  map[string]string{"user_name": reg.UserName, "email": reg.Email},
	}

	if err := reg.Validate(); err != nil {
		var ve *auth.ValidationError
		if errors.As(err, &ve) {
			data.Errors = ve.Fields
		}
		renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, "auth/register.html", data)
		return
	}

	err := h.registrar.Register(r.Context(), apiclient.RegisterInput{
		Email:    reg.Email,
		UserName: reg.UserName,
		Password: reg.Password,
	})
	switch {
	case errors.Is(err, apiclient.ErrEmailTaken):
		data.Errors = map[string]string{"email": apiclient.Message(err)}
		renderPage(w, r, h.renderer, http.StatusUnprocessableEntity, "auth/register.html", data)
		return
	case err != nil:
		slog.Warn("registration failed", "email", reg.Email, "error", err)
		data.Flash, data.FlashType = apiclient.Message(err), flashTypeError
		renderPage(w, r, h.renderer, http.StatusBadGateway, "auth/register.html", data)
		return
	}

	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "Student registered", nil, util.ClientIP(r), r.UserAgent(), map[string]any{"email": reg.Email})
	flashSuccess(w, r, h.renderer, redirectLogin, "Registration successful. Please sign in.")
}

// Loading renders the page shown while a stored session is being
// revalidated. The guard has already set the Refresh header.
func (h *AuthHandler) Loading(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "auth/loading.html", render.TemplateData{
		Title: "Restoring session",
		Data:  r.URL.RequestURI(),
	})
}
