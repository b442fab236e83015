package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	domorder "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/orderpay/internal/domain/outbox"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService   = "payment-service"
	useCasePayOrder  = "order.pay"
	payOrderSpanName = "PayOrder"
	spanPrefix       = "UC."
	gatewayPeer      = "payment_gateway"
	gatewayEndpoint  = "charge"
	publishPeer      = "outbox"
	publishEndpoint  = "order.paid"
	publishTimeout   = 300 * time.Millisecond

	MessagePaid         = "Order paid successfully"
	MessageChargeFailed = "Payment gateway charge failed"
)

// Result codes, set on unsuccessful results so callers can branch without
// parsing Message.
const (
	CodeOrderNotFound    = "ORDER_NOT_FOUND"
	CodeOrderEmpty       = "ORDER_EMPTY"
	CodeOrderAlreadyPaid = "ORDER_ALREADY_PAID"
	CodeStateTransition  = "STATE_TRANSITION_FAILED"
	CodeChargeDeclined   = "CHARGE_DECLINED"
)

var (
	ErrRepository = errors.New("payment: repository failure")
	ErrGateway    = errors.New("payment: gateway failure")
)

type PayOrderInput struct {
	OrderID string
}

// PayOrderResult is the outcome of one payment attempt. Message is meant for
// humans and is not a stable machine-readable code.
type PayOrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// PayOrderUseCase loads an order, applies the domain payment transition,
// charges the gateway and persists the paid order, in that order.
type PayOrderUseCase struct {
	repo      domorder.Repository
	gateway   Gateway
	publisher domoutbox.Publisher
	tracer    observability.Tracer
	locks     *orderLocks

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewPayOrderUseCase wires the use case. publisher and tel may be nil.
func NewPayOrderUseCase(
	repo domorder.Repository,
	gateway Gateway,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *PayOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	metricsProvider := tel.Metrics()

	return &PayOrderUseCase{
		repo:         repo,
		gateway:      gateway,
		publisher:    publisher,
		tracer:       tel.Tracer(),
		locks:        newOrderLocks(),
		log:          tel.Logger().With(observability.F("service", paymentService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

// Execute pays the order identified by cmd.OrderID.
//
// A missing order, a rejected domain transition and a declined charge are
// reported through the result with a nil error. The returned error is only
// set for infrastructure faults (repository or gateway transport failures).
//
// Pay mutates the loaded order before the gateway is called. When the charge
// is declined the order is not saved, but the loaded instance stays paid.
//
// Calls for the same order id are serialized from load to save, so
// concurrent requests charge an order at most once within this process.
func (uc *PayOrderUseCase) Execute(ctx context.Context, cmd PayOrderInput) (_ *PayOrderResult, err error) {
	ctx, logger := logctx.Enrich(ctx, uc.log,
		observability.F("use_case", useCasePayOrder),
		observability.F("order_id", cmd.OrderID),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+payOrderSpanName,
		attribute.String("use_case", useCasePayOrder),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := observability.OutcomeSuccess, "OK"
	result := &PayOrderResult{OrderID: cmd.OrderID}
	var publishErr error

	defer func() {
		latency := time.Since(start).Seconds()

		if span != nil {
			span.SetAttributes(attribute.Bool("payment.success", result.Success))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePayOrder),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(latency,
			observability.L("use_case", useCasePayOrder),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
			observability.F("success", result.Success),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if publishErr != nil {
			fields = append(fields, observability.F("event_publish_error", publishErr.Error()))
		}
		if err != nil {
			fields = append(fields, observability.Err(err))
		}
		logger.Info("use_case_done", fields...)
	}()

	unlock := uc.locks.lock(cmd.OrderID)
	defer unlock()

	entity, lookupErr := uc.repo.FindByID(ctx, cmd.OrderID)
	if lookupErr != nil {
		if errors.Is(lookupErr, domorder.ErrNotFound) {
			outcome, statusText = observability.OutcomeRejected, CodeOrderNotFound
			result.Code = statusText
			result.Message = fmt.Sprintf("Order %s not found", cmd.OrderID)
			return result, nil
		}
		outcome, statusText = observability.OutcomeError, "ORDER_LOOKUP_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrRepository, lookupErr)
	}

	if payErr := entity.Pay(); payErr != nil {
		outcome, statusText = observability.OutcomeRejected, rejectionStatus(payErr)
		result.Code = statusText
		result.Message = payErr.Error()
		return result, nil
	}

	total := entity.Total()
	span.SetAttributes(
		attribute.String("order.total", total.Amount().String()),
		attribute.String("order.currency", total.Currency()),
	)

	charged, chargeErr := uc.charge(ctx, entity)
	if chargeErr != nil {
		outcome, statusText = observability.OutcomeError, "GATEWAY_ERROR"
		return nil, fmt.Errorf("%w: %w", ErrGateway, chargeErr)
	}
	if !charged {
		outcome, statusText = observability.OutcomeRejected, CodeChargeDeclined
		result.Code = statusText
		result.Message = MessageChargeFailed
		return result, nil
	}

	if saveErr := uc.repo.Save(ctx, entity); saveErr != nil {
		outcome, statusText = observability.OutcomeError, "ORDER_SAVE_FAILED"
		return nil, fmt.Errorf("%w: %w", ErrRepository, saveErr)
	}

	result.Success = true
	result.Message = MessagePaid

	span.AddEvent("order.paid",
		trace.WithAttributes(attribute.String("order.id", entity.ID)),
	)

	if publishErr = uc.publish(ctx, entity); publishErr != nil {
		span.RecordError(publishErr)
		statusText = "EVENT_PUBLISH_FAILED"
	}

	return result, nil
}

func (uc *PayOrderUseCase) charge(ctx context.Context, entity *domorder.Order) (bool, error) {
	start := time.Now()
	charged, err := uc.gateway.Charge(ctx, entity.ID, entity.Total())

	outcome := observability.OutcomeSuccess
	switch {
	case err != nil:
		outcome = observability.OutcomeError
	case !charged:
		outcome = "declined"
	}
	uc.observeExternal(gatewayEndpoint, gatewayPeer, outcome, start)
	return charged, err
}

// publish emits order.paid. Failures never change the payment result.
func (uc *PayOrderUseCase) publish(ctx context.Context, entity *domorder.Order) error {
	if uc.publisher == nil {
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()

	err := uc.publisher.Publish(pubCtx, domorder.NewPaidEvent(entity))
	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeError
	} else if pubCtx.Err() != nil {
		outcome = "canceled"
		err = pubCtx.Err()
	}
	uc.observeExternal(publishEndpoint, publishPeer, outcome, start)
	return err
}

func (uc *PayOrderUseCase) observeExternal(endpoint, peer, outcome string, start time.Time) {
	uc.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	uc.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

func rejectionStatus(err error) string {
	switch {
	case errors.Is(err, domorder.ErrEmptyOrder):
		return CodeOrderEmpty
	case errors.Is(err, domorder.ErrAlreadyPaid):
		return CodeOrderAlreadyPaid
	default:
		return CodeStateTransition
	}
}
