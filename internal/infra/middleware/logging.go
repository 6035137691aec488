package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/telemetry"
)

// Logging records the tool, request metadata and timing around the rest of
// the chain. It never alters the result.
func Logging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("dispatch")

	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) (domain.ToolResult, error) {
			start := time.Now()
			result, err := next(ctx, call)
			duration := time.Since(start)

			callLogger := telemetry.LoggerWith(ctx, logger)
			fields := []zap.Field{
				telemetry.ToolField(call.Tool),
				telemetry.CategoryField(call.Meta.Category),
				telemetry.DurationField(duration),
			}
			if err != nil {
				callLogger.Warn("tool call failed",
					append(fields, telemetry.EventField(telemetry.EventDispatchFail), zap.Error(err))...)
			} else {
				callLogger.Info("tool call completed",
					append(fields, telemetry.EventField(telemetry.EventDispatch))...)
			}
			return result, err
		}
	}
}
