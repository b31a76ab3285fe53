package logging

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries the per-call request ID to the daemon.
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID carries the trace ID shared by related calls.
	HeaderTraceID = "X-Trace-ID"
)

// TraceContext holds tracing information for a call.
type TraceContext struct {
	RequestID string
	TraceID   string
	SpanID    string
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext() TraceContext {
	requestID := uuid.New().String()
	return TraceContext{
		RequestID: requestID,
		TraceID:   requestID,
		SpanID:    uuid.New().String(),
	}
}

// NewTraceContextWithParent creates a new TraceContext inheriting the parent trace ID.
func NewTraceContextWithParent(parentTraceID string) TraceContext {
	tc := NewTraceContext()
	if parentTraceID != "" {
		tc.TraceID = parentTraceID
	}
	return tc
}

// ToContext adds the trace context to a context.Context.
func (tc TraceContext) ToContext(ctx context.Context) context.Context {
	if tc.RequestID != "" {
		ctx = context.WithValue(ctx, RequestIDKey, tc.RequestID)
	}
	if tc.TraceID != "" {
		ctx = context.WithValue(ctx, TraceIDKey, tc.TraceID)
	}
	if tc.SpanID != "" {
		ctx = context.WithValue(ctx, SpanIDKey, tc.SpanID)
	}
	return ctx
}

// Inject writes the request and trace IDs to h.
func (tc TraceContext) Inject(h http.Header) {
	if tc.RequestID != "" {
		h.Set(HeaderRequestID, tc.RequestID)
	}
	if tc.TraceID != "" {
		h.Set(HeaderTraceID, tc.TraceID)
	}
}

// FromContext extracts a TraceContext from a context.Context.
func FromContext(ctx context.Context) TraceContext {
	return TraceContext{
		RequestID: GetRequestID(ctx),
		TraceID:   GetTraceID(ctx),
		SpanID:    GetSpanID(ctx),
	}
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(TraceIDKey).(string)
	return v
}

// GetSpanID retrieves the span ID from the context.
func GetSpanID(ctx context.Context) string {
	v, _ := ctx.Value(SpanIDKey).(string)
	return v
}

// GenerateRequestID generates a new UUID v4 request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}
