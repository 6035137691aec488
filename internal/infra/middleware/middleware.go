package middleware

import (
	"context"

	"tooldeck/internal/domain"
)

// Call is the per-request context threaded through the chain: the resolved
// tool plus its validated, default-filled arguments.
type Call struct {
	Tool domain.ToolName
	Meta domain.ToolMeta
	Args domain.Args
}

// Handler is one link of the chain. An error return means the call failed;
// the dispatcher converts it into a failure ToolResult after the outermost
// middleware has seen it.
type Handler func(ctx context.Context, call *Call) (domain.ToolResult, error)

// Middleware wraps a Handler. Each middleware must invoke next at most once
// and may short-circuit by returning without calling it.
type Middleware func(next Handler) Handler

// Chain composes middlewares so the first argument is the outermost wrapper.
func Chain(middlewares ...Middleware) Middleware {
	return func(final Handler) Handler {
		handler := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}
