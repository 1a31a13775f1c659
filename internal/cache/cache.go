package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/myna/internal/domain"
)

// comparisonKey is the per-user cache key holding the latest comparison.
const comparisonKey = "comparison:latest"

// New creates a new cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping LRU + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local LRU cache for fast reads
// L2: Redis for distributed caching and persistence
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	local := NewLRUCache(cfg.LocalMaxSize)

	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}, nil
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, userID string, key string) ([]byte, error) {
	// Check L1 first
	val, err := c.local.Get(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	// Check L2
	val, err = c.remote.Get(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		// Populate L1 for future reads
		_ = c.local.Set(ctx, userID, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, userID string, key string, value []byte, ttl time.Duration) error {
	// Write to L1 with shorter TTL
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, userID, key, value, l1TTL); err != nil {
		return err
	}

	// Write to L2 with full TTL
	return c.remote.Set(ctx, userID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, userID string, key string) error {
	if err := c.local.Delete(ctx, userID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, userID, key)
}

// GetComparison retrieves the cached latest comparison.
func (c *TwoPhaseCache) GetComparison(ctx context.Context, userID string) (*domain.ComparisonRecord, error) {
	// Check L1 first
	rec, err := c.local.GetComparison(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	// Check L2
	rec, err = c.remote.GetComparison(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		// Populate L1
		_ = c.local.SetComparison(ctx, userID, rec, c.l1TTL)
	}

	return rec, nil
}

// SetComparison caches the latest comparison in both L1 and L2.
func (c *TwoPhaseCache) SetComparison(ctx context.Context, userID string, rec *domain.ComparisonRecord, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.SetComparison(ctx, userID, rec, l1TTL); err != nil {
		return err
	}
	return c.remote.SetComparison(ctx, userID, rec, ttl)
}

// DeleteComparison drops the cached comparison from both L1 and L2.
func (c *TwoPhaseCache) DeleteComparison(ctx context.Context, userID string) error {
	if err := c.local.DeleteComparison(ctx, userID); err != nil {
		return err
	}
	return c.remote.DeleteComparison(ctx, userID)
}

// IncrementCounter uses Redis for distributed atomic counters.
// L1 is not used for counters to ensure accuracy across nodes.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, userID string, key string, window time.Duration) (int64, error) {
	return c.remote.IncrementCounter(ctx, userID, key, window)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
