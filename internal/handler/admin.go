// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quizzer/internal/auth"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/catalog"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/render"
	"github.com/olegiv/quizzer/internal/service"
	"github.com/olegiv/quizzer/internal/store"
)

// DashboardEventLimit is how many recent events the dashboard lists.
const DashboardEventLimit = 10

// AdminHandler serves the dashboard, profile and student home pages.
type AdminHandler struct {
	sessionDeps
	eventService *service.EventService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, c cache.Cacher, mirrorTTL time.Duration) *AdminHandler {
	return &AdminHandler{
		sessionDeps:  sessionDeps{renderer: renderer, sm: sm, cache: c, mirrorTTL: mirrorTTL},
		eventService: service.NewEventService(db),
	}
}

// countView is one statistic tile.
type countView struct {
	Path   string
	Label  string
	Loaded bool
	Count  int
}

type dashboardView struct {
	Counts      []countView
	AllLoaded   bool
	Events      []store.Event
	EventsError string
	EventCount  int64
	ErrorCount  int64
}

// Dashboard renders the admin dashboard. Counts come from the session's
// mirrors and are shown only for lists already loaded.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws := h.openWorkspace(r)

	fields := catalog.OpenMirror[model.Field](ctx, ws, catalog.KindFields)
	topics := catalog.OpenMirror[model.Topic](ctx, ws, catalog.KindTopics)
	questions := catalog.OpenMirror[model.Question](ctx, ws, catalog.KindQuestions)

	view := dashboardView{
		Counts: []countView{
			{Path: redirectAdminFields, Label: "Fields", Loaded: fields.Loaded(), Count: fields.Len()},
			{Path: redirectAdminTopics, Label: "Topics", Loaded: topics.Loaded(), Count: topics.Len()},
			{Path: redirectAdminQuestions, Label: "Questions", Loaded: questions.Loaded(), Count: questions.Len()},
		},
	}
	view.AllLoaded = fields.Loaded() && topics.Loaded() && questions.Loaded()

	events, err := h.eventService.RecentEvents(ctx, DashboardEventLimit)
	if err != nil {
		slog.Error("failed to load recent events", "error", err)
		view.EventsError = "Recent activity is unavailable."
	}
	view.Events = events

	if n, err := h.eventService.CountEvents(ctx); err == nil {
		view.EventCount = n
	}
	if n, err := h.eventService.CountErrors(ctx); err == nil {
		view.ErrorCount = n
	}

	renderPage(w, r, h.renderer, http.StatusOK, "admin/dashboard.html", render.TemplateData{
		Title: "Dashboard",
		Nav:   "dashboard",
		User:  middleware.GetUser(r),
		Data:  view,
	})
}

// Profile renders the signed-in user's details.
func (h *AdminHandler) Profile(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "admin/profile.html", render.TemplateData{
		Title: "Profile",
		Nav:   "profile",
		User:  middleware.GetUser(r),
	})
}

// StudentHome renders the landing page for students.
func (h *AdminHandler) StudentHome(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, http.StatusOK, "student/home.html", render.TemplateData{
		Title: "Home",
		Nav:   "student",
		User:  middleware.GetUser(r),
	})
}

// Root sends visitors to their role home, or to the login page.
func (h *AdminHandler) Root(w http.ResponseWriter, r *http.Request) {
	target := redirectLogin
	if user := middleware.GetUser(r); user != nil {
		target = auth.HomeFor(user.Role)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
