package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span is a timed unit of work within a trace. The first span opened on a
// context starts a new trace; later spans nest under the current one.
type Span struct {
	name     string
	id       string
	parentID string
	traceID  string
	logger   *slog.Logger
	start    time.Time
}

// StartSpan opens a span named name, tagging the context logger with the
// trace and span ids.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	span := &Span{
		name:     name,
		id:       uuid.NewString(),
		parentID: SpanIDFromContext(ctx),
		traceID:  TraceIDFromContext(ctx),
		start:    time.Now(),
	}

	attrs := make([]any, 0, 4)
	if span.traceID == "" {
		span.traceID = uuid.NewString()
		ctx = WithTraceID(ctx, span.traceID)
		attrs = append(attrs, slog.String("trace_id", span.traceID))
	}
	attrs = append(attrs, slog.String("span_id", span.id), slog.String("span_name", name))
	if span.parentID != "" {
		attrs = append(attrs, slog.String("parent_span_id", span.parentID))
	}

	span.logger = FromContext(ctx).With(attrs...)
	ctx = WithLogger(ctx, span.logger)
	ctx = WithSpanID(ctx, span.id)
	return ctx, span
}

// TraceID reports the trace the span belongs to.
func (s *Span) TraceID() string {
	if s == nil {
		return ""
	}
	return s.traceID
}

// End logs the span duration at debug level.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Debug("span completed", slog.Duration("duration", time.Since(s.start)))
}
