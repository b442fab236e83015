package payment

import (
	"context"
	"testing"
	"time"

	domorder "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/orderpay/internal/domain/outbox"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otherEvent struct{}

func (otherEvent) EventName() string { return "order.other" }

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if c.handlers == nil {
		c.handlers = map[string]domoutbox.Handler{}
	}
	c.handlers[name] = h
}

func TestReceiptWorker_Handle(t *testing.T) {
	tel := newFakeObservability()
	w := NewReceiptWorker(tel)

	err := w.Handle(context.Background(), domorder.PaidEvent{
		OrderID:    "o-1",
		CustomerID: "c-1",
		Amount:     "200.00",
		Currency:   "USD",
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), otherEvent{}))

	assert.Equal(t, 1.0, tel.counter(observability.MUsecaseRequests, "use_case="+useCaseReceipt, "outcome=success"))
	assert.Equal(t, 1.0, tel.counter(observability.MUsecaseRequests, "use_case="+useCaseReceipt, "outcome=ignored"))
}

func TestReceiptWorker_Start(t *testing.T) {
	w := NewReceiptWorker(nil)
	sub := &captureSubscriber{}
	wrapped := false

	w.Start(sub, func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			wrapped = true
			return next(ctx, e)
		}
	})

	h, ok := sub.handlers["order.paid"]
	require.True(t, ok)
	require.NoError(t, h(context.Background(), domorder.PaidEvent{OrderID: "o-1"}))
	assert.True(t, wrapped)

	assert.NotPanics(t, func() { w.Start(nil, nil) })
}
