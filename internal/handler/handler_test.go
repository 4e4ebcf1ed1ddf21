// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/quizzer/internal/apiclient"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/render"
	"github.com/olegiv/quizzer/internal/testutil"
	"github.com/olegiv/quizzer/internal/version"
	"github.com/olegiv/quizzer/web"
)

const (
	adminEmail    = "a@b.com"
	adminPassword = "secret123"
)

// testApp is the console wired against a fake quiz API.
type testApp struct {
	api    *testutil.QuizAPI
	server *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	api := testutil.NewQuizAPI(t)
	db := testutil.TestDB(t)
	sm := scs.New()

	templates, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)
	renderer, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm})
	require.NoError(t, err)

	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	client := apiclient.New(apiclient.Config{BaseURL: api.URL()})

	authHandler := NewAuthHandler(db, renderer, sm, c, client, nil)
	adminHandler := NewAdminHandler(db, renderer, sm, c, time.Minute)
	catalogHandler := NewCatalogHandler(db, renderer, sm, c, time.Minute, client)
	healthHandler := NewHealthHandler(db, client, c, cache.CacheBackendMemory, version.New("test", "", ""))
	loading := http.HandlerFunc(authHandler.Loading)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadSession(middleware.SessionConfig{
		SessionManager: sm,
		API:            client,
		Logger:         testutil.TestLoggerSilent(),
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get(RouteRoot, adminHandler.Root)
	r.With(middleware.RedirectIfAuthenticated).Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Post(RouteLogout, authHandler.Logout)
	r.With(middleware.RedirectIfAuthenticated).Get(RouteRegister, authHandler.RegisterForm)
	r.Post(RouteRegister, authHandler.Register)

	r.Route(RouteAdmin, func(r chi.Router) {
		r.Use(middleware.RequireRole(model.RoleAdmin, loading))
		r.Get(RouteRoot, adminHandler.Dashboard)
		r.Get(RouteProfile, adminHandler.Profile)
		r.Route(RouteFields, func(r chi.Router) { RegisterCRUD(r, catalogHandler.Fields()) })
		r.Route(RouteTopics, func(r chi.Router) { RegisterCRUD(r, catalogHandler.Topics()) })
		r.Route(RouteQuestions, func(r chi.Router) { RegisterCRUD(r, catalogHandler.Questions()) })
	})
	r.Route(RouteStudent, func(r chi.Router) {
		r.Use(middleware.RequireRole(model.RoleStudent, loading))
		r.Get(RouteRoot, adminHandler.StudentHome)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		api:    api,
		server: server,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// response is a fully read HTTP response.
type response struct {
	status   int
	location string
	body     string
}

func (a *testApp) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (a *testApp) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	return a.do(t, req)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set(HeaderContentType, "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func (a *testApp) login(t *testing.T, email, password string) response {
	t.Helper()
	return a.post(t, RouteLogin, url.Values{"email": {email}, "password": {password}})
}

// signInAdmin creates the admin account and signs it in.
func (a *testApp) signInAdmin(t *testing.T) {
	t.Helper()
	a.api.AddUser(adminEmail, adminPassword, "Alice", model.RoleAdmin)
	resp := a.login(t, adminEmail, adminPassword)
	require.Equal(t, http.StatusSeeOther, resp.status)
	require.Equal(t, RouteAdmin, resp.location)
}
