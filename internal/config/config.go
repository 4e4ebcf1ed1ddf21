// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the console configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/quizzer/internal/util"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL        string        `env:"QUIZZER_API_URL,required"`
	APITimeout    time.Duration `env:"QUIZZER_API_TIMEOUT" envDefault:"10s"`
	APIRateLimit  float64       `env:"QUIZZER_API_RATE_LIMIT" envDefault:"20"` // Outbound requests per second, 0 disables
	APIBurst      int           `env:"QUIZZER_API_BURST" envDefault:"40"`
	SessionSecret string        `env:"QUIZZER_SESSION_SECRET,required"`
	DBPath        string        `env:"QUIZZER_DB_PATH" envDefault:"./data/quizzer.db"`
	ServerHost    string        `env:"QUIZZER_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int           `env:"QUIZZER_SERVER_PORT" envDefault:"8080"`
	Env           string        `env:"QUIZZER_ENV" envDefault:"development"`
	LogLevel      string        `env:"QUIZZER_LOG_LEVEL" envDefault:"info"`

	// Cache configuration
	RedisURL     string `env:"QUIZZER_REDIS_URL"`                          // Optional Redis URL for shared caching
	CachePrefix  string `env:"QUIZZER_CACHE_PREFIX" envDefault:"quizzer:"` // Redis key prefix
	CacheTTL     int    `env:"QUIZZER_CACHE_TTL" envDefault:"1800"`        // Mirror TTL in seconds
	CacheMaxSize int    `env:"QUIZZER_CACHE_MAX_SIZE" envDefault:"10000"`  // Max memory cache entries

	// Session revalidation
	RevalidateTTL     time.Duration `env:"QUIZZER_REVALIDATE_TTL" envDefault:"5m"`
	RevalidateTimeout time.Duration `env:"QUIZZER_REVALIDATE_TIMEOUT" envDefault:"3s"`

	TokenCookie        bool `env:"QUIZZER_TOKEN_COOKIE" envDefault:"false"` // Mirror the bearer token into its own cookie
	EventRetentionDays int  `env:"QUIZZER_EVENT_RETENTION_DAYS" envDefault:"30"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	apiURL, err := util.ValidateBaseURL(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("QUIZZER_API_URL: %w", err)
	}
	cfg.APIURL = apiURL

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("QUIZZER_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, errors.New("QUIZZER_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if cfg.APITimeout <= 0 {
		return nil, fmt.Errorf("QUIZZER_API_TIMEOUT must be positive, got %s", cfg.APITimeout)
	}
	if cfg.RevalidateTimeout <= 0 {
		return nil, fmt.Errorf("QUIZZER_REVALIDATE_TIMEOUT must be positive, got %s", cfg.RevalidateTimeout)
	}
	if cfg.APIRateLimit < 0 {
		return nil, fmt.Errorf("QUIZZER_API_RATE_LIMIT must not be negative, got %v", cfg.APIRateLimit)
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("QUIZZER_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	// Bearer tokens travel to the API; plain http is only acceptable on a local network.
	if u, err := url.Parse(cfg.APIURL); err == nil && u.Scheme == "http" && !cfg.IsDevelopment() && !util.IsLocalHost(u.Hostname()) {
		slog.Warn("QUIZZER_API_URL uses plain http to a public host", "host", u.Hostname())
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
