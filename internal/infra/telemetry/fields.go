package telemetry

import (
	"time"

	"go.uber.org/zap"

	"tooldeck/internal/domain"
)

const (
	FieldEvent      = "event"
	FieldTool       = "tool"
	FieldCategory   = "category"
	FieldStatus     = "status"
	FieldCode       = "code"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventDispatch     = "dispatch"
	EventDispatchFail = "dispatch_error"
	EventRateLimited  = "rate_limited"
	EventBrowserStart = "browser_start"
	EventBrowserStop  = "browser_stop"
	EventIdleReap     = "idle_reap"
	EventConfigDrift  = "config_drift"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolField(tool domain.ToolName) zap.Field {
	return zap.String(FieldTool, string(tool))
}

func CategoryField(category domain.Category) zap.Field {
	return zap.String(FieldCategory, string(category))
}

func StatusField(status domain.DispatchStatus) zap.Field {
	return zap.String(FieldStatus, string(status))
}

func CodeField(code domain.ErrorCode) zap.Field {
	return zap.String(FieldCode, string(code))
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
