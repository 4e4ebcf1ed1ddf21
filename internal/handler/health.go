// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/olegiv/quizzer/internal/cache"
	"github.com/olegiv/quizzer/internal/middleware"
	"github.com/olegiv/quizzer/internal/version"
)

// Pinger reports whether the quiz API is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthCheckTimeout = 3 * time.Second

// Check statuses.
const (
	checkHealthy   = "healthy"
	checkUnhealthy = "unhealthy"
	checkDegraded  = "degraded"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	db           *sql.DB
	api          Pinger
	cache        cache.Cacher
	cacheBackend string
	version      version.Info
	startTime    time.Time
}

// NewHealthHandler creates a new health handler. backend names the cache
// implementation reported to admins.
func NewHealthHandler(db *sql.DB, api Pinger, c cache.Cacher, backend string, info version.Info) *HealthHandler {
	return &HealthHandler{
		db:           db,
		api:          api,
		cache:        c,
		cacheBackend: backend,
		version:      info,
		startTime:    time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for non-admin callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed health response shown to admins.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Cache     *CacheInfo       `json:"cache,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// CacheInfo summarizes the mirror and user cache.
type CacheInfo struct {
	Backend string `json:"backend"`
	Hits    string `json:"hits"`
	Misses  string `json:"misses"`
	HitRate string `json:"hit_rate"`
	Items   int    `json:"items,omitempty"`
	Size    string `json:"size,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health. The local database must be up; an unreachable
// quiz API only degrades the status because stored sessions still render
// the loading page.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())
	apiCheck := h.checkQuizAPI(r.Context())

	overallStatus := checkHealthy
	switch {
	case dbCheck.Status != checkHealthy:
		overallStatus = checkUnhealthy
	case apiCheck.Status != checkHealthy:
		overallStatus = checkDegraded
	}

	w.Header().Set(HeaderContentType, "application/json")
	if overallStatus == checkUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if user := middleware.GetUser(r); user == nil || !user.IsAdmin() {
		_ = json.NewEncoder(w).Encode(HealthStatusPublic{Status: overallStatus})
		return
	}

	status := HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.Version,
		Checks: map[string]Check{
			"database": dbCheck,
			"quiz_api": apiCheck,
		},
		Cache: h.cacheInfo(),
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = systemInfo()
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Liveness handles GET /health/live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(HeaderContentType, "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The console is ready when both the
// session database and the quiz API answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(HeaderContentType, "application/json")

	for _, c := range []Check{h.checkDatabase(r.Context()), h.checkQuizAPI(r.Context())} {
		if c.Status != checkHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	return result(err, "Connected", time.Since(start))
}

func (h *HealthHandler) checkQuizAPI(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.api.Ping(ctx)
	return result(err, "Reachable", time.Since(start))
}

func result(err error, ok string, latency time.Duration) Check {
	if err != nil {
		return Check{Status: checkUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: checkHealthy, Message: ok, Latency: latency.String()}
}

func (h *HealthHandler) cacheInfo() *CacheInfo {
	sp, ok := h.cache.(cache.StatsProvider)
	if !ok {
		return nil
	}
	stats := sp.Stats()
	info := &CacheInfo{
		Backend: h.cacheBackend,
		Hits:    humanize.Comma(stats.Hits),
		Misses:  humanize.Comma(stats.Misses),
		HitRate: humanize.FtoaWithDigits(stats.HitRate, 1) + "%",
		Items:   stats.Items,
	}
	if stats.Size > 0 {
		info.Size = humanize.IBytes(uint64(stats.Size))
	}
	return info
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     humanize.IBytes(m.Alloc),
		MemSys:       humanize.IBytes(m.Sys),
	}
}
