package middleware

import (
	"context"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/cache"
	"tooldeck/internal/infra/hashutil"
)

// Caching wraps the terminal call for read-only tools with the TTL cache,
// keyed by tool name plus a digest of the validated arguments. Non-read-only
// tools bypass the cache entirely, as do calls whose arguments cannot be
// serialized.
func Caching(store *cache.TTL[domain.ToolResult], sink domain.Metrics) Middleware {
	if sink == nil {
		sink = domain.NopMetrics{}
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (domain.ToolResult, error) {
			if store == nil || !call.Meta.ReadOnly {
				return next(ctx, call)
			}
			key, ok := cacheKey(call)
			if !ok {
				return next(ctx, call)
			}

			result, hit, err := store.GetOrCompute(ctx, key, func(ctx context.Context) (domain.ToolResult, error) {
				return next(ctx, call)
			})
			if err != nil {
				return domain.ToolResult{}, err
			}
			sink.ObserveCache(call.Tool, hit)
			return result, nil
		}
	}
}

// cacheKey builds a bounded key from the tool name and an argument digest,
// so oversized argument bags cannot bloat the store.
func cacheKey(call *Call) (string, bool) {
	digest, err := hashutil.SumJSON(map[string]any(call.Args))
	if err != nil {
		return "", false
	}
	return string(call.Tool) + ":" + digest, true
}
