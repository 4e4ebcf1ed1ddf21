// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/quizzer/internal/apiclient"
	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/config"
	"github.com/olegiv/quizzer/internal/handler"
	"github.com/olegiv/quizzer/internal/logging"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/model"
	"github.com/olegiv/quizzer/internal/render"
	"github.com/olegiv/quizzer/internal/scheduler"
	"github.com/olegiv/quizzer/internal/service"
	"github.com/olegiv/quizzer/internal/session"
	"github.com/olegiv/quizzer/internal/store"
	"github.com/olegiv/quizzer/internal/version"
	"github.com/olegiv/quizzer/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Quizzer - admin console for the quiz service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUIZZER_API_URL          Base URL of the quiz REST API (required)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUIZZER_SESSION_SECRET   Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUIZZER_DB_PATH          SQLite database path (default: ./data/quizzer.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUIZZER_SERVER_PORT      Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUIZZER_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  QUIZZER_REDIS_URL        Redis URL for shared catalog mirrors (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.New(appVersion, appGitCommit, appBuildTime)
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	sessionManager := session.New(db, cfg.IsDevelopment())

	if cfg.UseRedisCache() {
		slog.Info("connecting to redis cache", "url", cache.SanitizeRedisURL(cfg.RedisURL))
	}
	cacheResult, err := cache.NewCacheWithInfo(cache.CacheConfig{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		FallbackToMemory: true,
		DefaultTTL:       cfg.CacheTTLDuration(),
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = cacheResult.Cache.Close() }()
	slog.Info("cache initialized", "backend", cacheResult.BackendType, "fallback", cacheResult.IsFallback)

	apiClient := apiclient.New(apiclient.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		Burst:     cfg.APIBurst,
		UserAgent: "quizzer/" + versionInfo.Version,
	})
	slog.Info("quiz API client initialized", "url", apiClient.BaseURL())

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	eventService := service.NewEventService(db)
	sched := scheduler.New(scheduler.Config{
		Events:        eventService,
		RetentionDays: cfg.EventRetentionDays,
		API:           apiClient,
	}, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, cacheResult.Cache, apiClient, loginProtection)
	adminHandler := handler.NewAdminHandler(db, renderer, sessionManager, cacheResult.Cache, cfg.CacheTTLDuration())
	catalogHandler := handler.NewCatalogHandler(db, renderer, sessionManager, cacheResult.Cache, cfg.CacheTTLDuration(), apiClient)
	healthHandler := handler.NewHealthHandler(db, apiClient, cacheResult.Cache, cacheResult.BackendType, versionInfo)
	loading := http.HandlerFunc(authHandler.Loading)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	// Probes run without a session.
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Group(func(r chi.Router) {
		r.Use(sessionManager.LoadAndSave)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerPort)))
		r.Use(middleware.LoadSession(middleware.SessionConfig{
			SessionManager:    sessionManager,
			API:               apiClient,
			Users:             cache.NewTypedCache[model.User](cacheResult.Cache, cfg.RevalidateTTL),
			UsersTTL:          cfg.RevalidateTTL,
			RevalidateTimeout: cfg.RevalidateTimeout,
			TokenCookie: session.TokenCookie{
				Enabled: cfg.TokenCookie,
				Name:    session.DefaultTokenCookieName,
				Secure:  !cfg.IsDevelopment(),
			},
			Logger: logger,
		}))

		r.Get("/health", healthHandler.Health)
		r.Get(handler.RouteRoot, adminHandler.Root)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RedirectIfAuthenticated)
			r.Get(handler.RouteLogin, authHandler.LoginForm)
			r.Get(handler.RouteRegister, authHandler.RegisterForm)
		})
		r.Group(func(r chi.Router) {
			r.Use(loginProtection.Middleware())
			r.Post(handler.RouteLogin, authHandler.Login)
			r.Post(handler.RouteRegister, authHandler.Register)
		})
		r.Post(handler.RouteLogout, authHandler.Logout)

		r.Route(handler.RouteAdmin, func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin, loading))
			r.Get(handler.RouteRoot, adminHandler.Dashboard)
			r.Get(handler.RouteProfile, adminHandler.Profile)
			r.Route(handler.RouteFields, func(r chi.Router) { handler.RegisterCRUD(r, catalogHandler.Fields()) })
			r.Route(handler.RouteTopics, func(r chi.Router) { handler.RegisterCRUD(r, catalogHandler.Topics()) })
			r.Route(handler.RouteQuestions, func(r chi.Router) { handler.RegisterCRUD(r, catalogHandler.Questions()) })
		})

		r.Route(handler.RouteStudent, func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleStudent, loading))
			r.Get(handler.RouteRoot, adminHandler.StudentHome)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
