package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Backend names reported by NewCacheWithInfo.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig holds configuration for cache creation.
type CacheConfig struct {
	// RedisURL selects the Redis backend when non-empty.
	RedisURL string

	// Prefix is the key prefix for Redis.
	Prefix string

	// FallbackToMemory uses the memory backend when Redis is unreachable.
	FallbackToMemory bool

	DefaultTTL      time.Duration
	MaxSize         int // memory backend only, 0 = unlimited
	CleanupInterval time.Duration
}

// Result is a created cache plus what backend it ended up on.
type Result struct {
	Cache       Cacher
	BackendType string
	IsFallback  bool
}

// NewCacheWithInfo creates the configured cache. A Redis connection failure
// falls back to memory when FallbackToMemory is set.
func NewCacheWithInfo(cfg CacheConfig) (*Result, error) {
	if cfg.RedisURL != "" {
		rc, err := NewRedisCacheFromURL(cfg.RedisURL, cfg.Prefix, cfg.DefaultTTL)
		if err == nil {
			return &Result{Cache: rc, BackendType: CacheBackendRedis}, nil
		}
		if !cfg.FallbackToMemory {
			return nil, err
		}
		slog.Warn("redis unavailable, using memory cache",
			"redis_url", SanitizeRedisURL(cfg.RedisURL), "error", err)
		return &Result{Cache: newMemory(cfg), BackendType: CacheBackendMemory, IsFallback: true}, nil
	}

	return &Result{Cache: newMemory(cfg), BackendType: CacheBackendMemory}, nil
}

func newMemory(cfg CacheConfig) *MemoryCache {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: interval,
	})
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
