package middleware

import (
	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/cache"
)

type Options struct {
	Logger   *zap.Logger
	Recorder *Recorder
	Metrics  domain.Metrics
	Limiter  *RateLimiter
	Cache    *cache.TTL[domain.ToolResult]
}

// Builtin assembles the standard chain. The order is load-bearing:
// normalization is outermost so every downstream failure passes through it,
// logging and metrics bracket the rest for accurate timing, and rate
// limiting runs before caching so rejected calls never populate the cache
// or reach the handler.
func Builtin(opts Options) Middleware {
	return Chain(
		Normalize(),
		Logging(opts.Logger),
		Metrics(opts.Recorder, opts.Metrics),
		RateLimit(opts.Limiter, opts.Metrics),
		Caching(opts.Cache, opts.Metrics),
	)
}
