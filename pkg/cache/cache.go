// Package cache stores hld responses in memory or in Redis.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in the cache.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-oriented cache with TTLs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	Close() error
	Health(ctx context.Context) error
	Stats() Stats
}

// Stats holds cache statistics.
type Stats struct {
	Hits       int64
	Misses     int64
	Keys       int64
	MemoryUsed int64
}

// Config holds cache configuration.
type Config struct {
	// Type is the cache backend type: "redis" or "memory"
	Type string

	// Redis configuration
	URL      string // Redis URL (redis://localhost:6379)
	Password string
	DB       int

	// Connection pool settings
	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	// General settings
	DefaultTTL time.Duration
	Prefix     string

	// Memory cache settings
	MaxMemory int64 // Maximum memory in bytes (0 = unlimited)
	MaxItems  int   // Maximum number of items (0 = unlimited)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Type:         "memory",
		DefaultTTL:   5 * time.Second,
		Prefix:       "hld",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		MaxMemory:    16 * 1024 * 1024,
		MaxItems:     1000,
	}
}

// New creates a new cache instance based on configuration.
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisCache(cfg)
	case "memory", "":
		return NewMemoryCache(cfg), nil
	default:
		return nil, errors.New("unsupported cache type: " + cfg.Type)
	}
}
