package middleware

import (
	"context"
	"errors"
	"fmt"

	"tooldeck/internal/domain"
)

// Normalize is the outermost middleware. It recovers panics from the rest
// of the chain and coerces every raw error into an Internal-kind structured
// error carrying the original message. Downstream of this wrapper, failures
// only ever travel as *domain.Error.
func Normalize() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (result domain.ToolResult, err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					result = domain.ToolResult{}
					err = domain.E(domain.CodeInternal, "middleware.Normalize", fmt.Sprintf("handler panic: %v", recovered), nil)
				}
			}()

			result, err = next(ctx, call)
			if err != nil {
				var structured *domain.Error
				if !errors.As(err, &structured) {
					err = domain.E(domain.CodeInternal, "middleware.Normalize", err.Error(), err)
				}
			}
			return result, err
		}
	}
}
