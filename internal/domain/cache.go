package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods are scoped by userID so one user's data can never be served
// to another.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, userID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, userID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, userID string, key string) error

	// GetComparison retrieves a cached latest comparison.
	// Returns nil, nil on a miss.
	GetComparison(ctx context.Context, userID string) (*ComparisonRecord, error)

	// SetComparison caches the latest comparison for a user.
	SetComparison(ctx context.Context, userID string, rec *ComparisonRecord, ttl time.Duration) error

	// DeleteComparison drops the cached comparison, e.g. after a category
	// record changes underneath it.
	DeleteComparison(ctx context.Context, userID string) error

	// IncrementCounter atomically increments a counter and returns the new
	// value. Used for per-user rate limiting of comparison generation.
	IncrementCounter(ctx context.Context, userID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
