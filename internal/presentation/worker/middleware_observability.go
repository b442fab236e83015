package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/orderpay/internal/domain/outbox"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects a request-scoped logger for background/worker executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "use_case", "event").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 3+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// EventLogging decorates an outbox handler so every delivery runs with an
// event-scoped logger. The logger already on the context, if any, is the base.
func EventLogging(fallback observability.Logger, worker string) domoutbox.Middleware {
	return func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			sc := trace.SpanContextFromContext(ctx)
			ctx = WithEventContext(ctx, logctx.FromOr(ctx, fallback), sc.TraceID(), sc.SpanID(), map[string]string{
				"event":  e.EventName(),
				"worker": worker,
			})
			return next(ctx, e)
		}
	}
}
