package middleware

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"tooldeck/internal/domain"
)

// RateLimiter hands out one token bucket per tool. A disabled limiter
// admits everything.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[domain.ToolName]*rate.Limiter

	enabled   bool
	perMinute int
	limit     rate.Limit
	burst     int
}

func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiters:  make(map[domain.ToolName]*rate.Limiter),
		enabled:   cfg.Enabled && cfg.PerMinute > 0,
		perMinute: cfg.PerMinute,
		limit:     rate.Limit(float64(cfg.PerMinute) / 60.0),
		burst:     cfg.Burst,
	}
}

// Allow reports whether one more call to tool fits the configured rate.
func (l *RateLimiter) Allow(tool domain.ToolName) bool {
	if l == nil || !l.enabled {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[tool]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[tool] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// RateLimit rejects calls that exceed the per-tool rate before they reach
// the cache or the handler.
func RateLimit(limiter *RateLimiter, sink domain.Metrics) Middleware {
	if sink == nil {
		sink = domain.NopMetrics{}
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (domain.ToolResult, error) {
			if !limiter.Allow(call.Tool) {
				sink.ObserveRateLimited(call.Tool)
				return domain.ToolResult{}, domain.E(
					domain.CodeRateLimited,
					"middleware.RateLimit",
					fmt.Sprintf("tool %s exceeded %d calls per minute", call.Tool, limiter.perMinute),
					nil,
				)
			}
			return next(ctx, call)
		}
	}
}
