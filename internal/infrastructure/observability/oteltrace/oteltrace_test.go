package oteltrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracer_Start(t *testing.T) {
	tr := FromProvider(noop.NewTracerProvider(), "")

	ctx, span := tr.Start(context.Background(), "UC.PayOrder", attribute.String("order.id", "order-1"))
	defer span.End()

	assert.NotNil(t, span)
	assert.Equal(t, span, trace.SpanFromContext(ctx))
}

func TestNew_DefaultsName(t *testing.T) {
	tr := New("")

	_, span := tr.Start(context.Background(), "op")
	span.End()

	assert.NotNil(t, tr)
}
