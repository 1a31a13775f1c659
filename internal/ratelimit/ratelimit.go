// Package ratelimit caps per-user request rates using cache counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/myna/internal/domain"
)

// ErrLimited is returned when a user exceeds their request budget.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter enforces a fixed-window request cap per user. Counters live in
// the cache, so with Redis the limit holds across nodes.
type Limiter struct {
	cache       domain.Cache
	enabled     bool
	maxRequests int64
	window      time.Duration
}

// NewLimiter creates a limiter from configuration.
func NewLimiter(cache domain.Cache, cfg domain.RateLimitConfig) *Limiter {
	maxRequests := int64(cfg.MaxRequests)
	if maxRequests <= 0 {
		maxRequests = 30
	}

	windowSecs := cfg.WindowSecs
	if windowSecs <= 0 {
		windowSecs = 60
	}

	return &Limiter{
		cache:       cache,
		enabled:     cfg.Enabled,
		maxRequests: maxRequests,
		window:      time.Duration(windowSecs) * time.Second,
	}
}

// Allow records one request for the user under the named action and
// reports whether it falls within the budget. Disabled limiters always
// allow.
func (l *Limiter) Allow(ctx context.Context, userID, action string) error {
	if !l.enabled {
		return nil
	}
	if userID == "" {
		return fmt.Errorf("userID is required")
	}

	count, err := l.cache.IncrementCounter(ctx, userID, action, l.window)
	if err != nil {
		// Counter backend errors fail open
		return nil
	}

	if count > l.maxRequests {
		return fmt.Errorf("%w: %d requests in %s (max %d)", ErrLimited, count, l.window, l.maxRequests)
	}
	return nil
}

// Window returns the configured window size.
func (l *Limiter) Window() time.Duration {
	return l.window
}
