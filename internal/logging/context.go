package logging

import (
	"context"
	"log/slog"
)

type scopeKey struct{}

// scope is the per-request logging state. Each With* call stores a copy so
// values set by a child never leak into its parent context.
type scope struct {
	logger    *slog.Logger
	requestID string
	traceID   string
	spanID    string
	userID    string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, update func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeFrom(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.logger = logger })
}

// FromContext returns the request-scoped logger or falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger := scopeFrom(ctx).logger; logger != nil {
		return logger
	}
	return slog.Default()
}

// WithRequestID stores a request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.requestID = requestID })
}

// RequestIDFromContext retrieves a previously stored request identifier.
func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

// WithTraceID stores a trace identifier on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.traceID = traceID })
}

// TraceIDFromContext retrieves the trace identifier from the context.
func TraceIDFromContext(ctx context.Context) string { return scopeFrom(ctx).traceID }

// WithSpanID stores the current span identifier on the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	if spanID == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) { s.spanID = spanID })
}

// SpanIDFromContext retrieves the span identifier from the context.
func SpanIDFromContext(ctx context.Context) string { return scopeFrom(ctx).spanID }

// WithUserID records the authenticated identity and tags the logger with it.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return withScope(ctx, func(s *scope) {
		s.userID = userID
		if s.logger == nil {
			s.logger = slog.Default()
		}
		s.logger = s.logger.With(slog.String("user_id", userID))
	})
}

// UserIDFromContext returns the authenticated identity, if any.
func UserIDFromContext(ctx context.Context) string { return scopeFrom(ctx).userID }
