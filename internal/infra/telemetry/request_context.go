package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type requestMetaKey struct{}

// RequestMeta identifies one inbound call in logs: a generated request ID
// plus the trace/span of any surrounding OpenTelemetry span.
type RequestMeta struct {
	RequestID string
	TraceID   string
	SpanID    string
}

func (m RequestMeta) IsZero() bool {
	return m.RequestID == "" && m.TraceID == "" && m.SpanID == ""
}

// WithRequest stamps a fresh RequestMeta into ctx, reusing an existing one
// if a previous layer already stamped it.
func WithRequest(ctx context.Context) (context.Context, RequestMeta) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok && !existing.IsZero() {
		return ctx, existing
	}

	meta := RequestMeta{RequestID: uuid.NewString()}
	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		meta.TraceID = spanCtx.TraceID().String()
		meta.SpanID = spanCtx.SpanID().String()
	}
	return context.WithValue(ctx, requestMetaKey{}, meta), meta
}

func RequestFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok && !meta.IsZero()
}

func (m RequestMeta) Fields() []zap.Field {
	if m.IsZero() {
		return nil
	}
	fields := make([]zap.Field, 0, 3)
	if m.RequestID != "" {
		fields = append(fields, RequestIDField(m.RequestID))
	}
	if m.TraceID != "" {
		fields = append(fields, TraceIDField(m.TraceID))
	}
	if m.SpanID != "" {
		fields = append(fields, SpanIDField(m.SpanID))
	}
	return fields
}

// LoggerWith returns base annotated with the request fields found in ctx.
func LoggerWith(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	meta, ok := RequestFromContext(ctx)
	if !ok {
		return base
	}
	return base.With(meta.Fields()...)
}
