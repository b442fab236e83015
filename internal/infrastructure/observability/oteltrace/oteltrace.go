package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultName = "orderpay"

type tracer struct{ t trace.Tracer }

// New returns a tracer from the global provider. Without an SDK provider
// installed via otel.SetTracerProvider, spans are non-recording.
func New(name string) observability.Tracer {
	if name == "" {
		name = defaultName
	}
	return &tracer{t: otel.Tracer(name)}
}

// FromProvider is like New but uses tp instead of the global provider.
func FromProvider(tp trace.TracerProvider, name string) observability.Tracer {
	if tp == nil {
		return New(name)
	}
	if name == "" {
		name = defaultName
	}
	return &tracer{t: tp.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
