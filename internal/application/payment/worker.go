package payment

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/orderpay/internal/domain/outbox"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
)

const (
	receiptWorker  = "receipt-worker"
	useCaseReceipt = "payment.worker.receipt"
)

// ReceiptWorker reacts to order.paid events and records a payment receipt.
type ReceiptWorker struct {
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewReceiptWorker(tel observability.Observability) *ReceiptWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &ReceiptWorker{
		log:          tel.Logger().With(observability.F("service", receiptWorker)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// EventName is the event the worker consumes.
func (w *ReceiptWorker) EventName() string {
	return domorder.PaidEvent{}.EventName()
}

// Start registers the worker on subscriber, decorated by mws in order.
func (w *ReceiptWorker) Start(subscriber domoutbox.Subscriber, mws ...domoutbox.Middleware) {
	if subscriber == nil {
		return
	}
	subscriber.Subscribe(w.EventName(), domoutbox.Chain(w.Handle, mws...))
}

func (w *ReceiptWorker) Handle(ctx context.Context, e domoutbox.Event) error {
	start := time.Now()
	evt, ok := e.(domorder.PaidEvent)
	if !ok {
		w.observe("ignored", start)
		return nil
	}

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCaseReceipt),
		observability.F("event", e.EventName()),
	)
	logger.Info("payment_receipt",
		observability.F("order_id", evt.OrderID),
		observability.F("customer_id", evt.CustomerID),
		observability.F("amount", evt.Amount),
		observability.F("currency", evt.Currency),
		observability.F("paid_at", evt.OccurredAt),
	)

	w.observe(observability.OutcomeSuccess, start)
	return nil
}

func (w *ReceiptWorker) observe(outcome string, start time.Time) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCaseReceipt),
		observability.L("outcome", outcome),
	)
	w.durHistogram.Observe(time.Since(start).Seconds(),
		observability.L("use_case", useCaseReceipt),
	)
}
