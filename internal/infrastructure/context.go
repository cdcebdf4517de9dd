package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	traceIDKey contextKey = iota
	datasetIDKey
)

// WithTraceID attaches a request trace ID to ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace ID set by WithTraceID, falling back to the
// ID of the active OpenTelemetry span
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return TraceIDFromContext(ctx)
}

// EnsureTraceID returns ctx with a fresh UUID trace ID when it has none
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, uuid.NewString())
}

// WithDatasetID scopes ctx to one dataset snapshot
func WithDatasetID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, datasetIDKey, id)
}

// GetDatasetID returns the dataset ID set by WithDatasetID
func GetDatasetID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(datasetIDKey).(string)
	return id
}
