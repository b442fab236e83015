package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	domain "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	useCaseOrderGet    = "order.get"
	spanPrefix         = "UC."
)

var (
	ErrNotFound   = domain.ErrNotFound
	ErrValidation = errors.New("order: validation failed")
	ErrRepository = errors.New("order: repository failure")
)

// CreateOrderUseCase builds a pending order from its lines and stores it.
type CreateOrderUseCase struct {
	repo        domain.Repository
	idGenerator IDGenerator
	tracer      observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

// NewCreateOrderUseCase wires the dependencies required to execute the use case.
// A nil idGen leaves id generation to the order package.
func NewCreateOrderUseCase(
	repo domain.Repository,
	idGen IDGenerator,
	tel observability.Observability,
) *CreateOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	if idGen == nil {
		idGen = IDGeneratorFunc(func() string { return "" })
	}
	metricsProvider := tel.Metrics()

	return &CreateOrderUseCase{
		repo:         repo,
		idGenerator:  idGen,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
	}
}

type LineInput struct {
	ProductID   string
	ProductName string
	Price       string
	Currency    string
	Quantity    int
}

type CreateOrderInput struct {
	CustomerID string
	Lines      []LineInput
}

type CreateOrderResult struct {
	OrderID string
	Status  domain.Status
	Total   money.Money
}

// Execute performs the order creation flow. Domain validation failures are
// returned wrapped in ErrValidation and keep their original sentinel.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	ctx, logger := logctx.Enrich(ctx, uc.log, observability.F("use_case", useCaseOrderCreate))

	var orderID string

	ctx, span := uc.tracer.Start(ctx, spanPrefix+"CreateOrder",
		attribute.String("use_case", useCaseOrderCreate),
		attribute.String("order.customer_id", cmd.CustomerID),
		attribute.Int("order.lines", len(cmd.Lines)),
	)
	start := time.Now()
	outcome, statusText := observability.OutcomeSuccess, "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseOrderCreate),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(lat,
			observability.L("use_case", useCaseOrderCreate),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if orderID != "" {
			fields = append(fields, observability.F("order_id", orderID))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.Err(err))
		}

		logger.Info("use_case_done", fields...)
	}()

	if cmd.CustomerID == "" {
		outcome, statusText = observability.OutcomeRejected, "CUSTOMER_ID_REQUIRED"
		return nil, newValidation(errors.New("customer id is required"))
	}

	entity := domain.New(uc.idGenerator.NewID(), cmd.CustomerID)
	orderID = entity.ID
	for i, l := range cmd.Lines {
		price, perr := money.Parse(l.Price, l.Currency)
		if perr != nil {
			outcome, statusText = observability.OutcomeRejected, "PRICE_INVALID"
			return nil, newValidation(fmt.Errorf("line %d: %w", i, perr))
		}
		if aerr := entity.AddLine(l.ProductID, l.ProductName, price, l.Quantity); aerr != nil {
			outcome, statusText = observability.OutcomeRejected, "LINE_REJECTED"
			return nil, newValidation(fmt.Errorf("line %d: %w", i, aerr))
		}
	}

	if err := ctx.Err(); err != nil {
		outcome, statusText = observability.OutcomeError, "CONTEXT_CANCELED"
		return nil, err
	}
	if err := uc.repo.Save(ctx, entity); err != nil {
		outcome, statusText = observability.OutcomeError, "REPO_SAVE_FAILED"
		return nil, wrapRepositoryError(err)
	}

	total := entity.Total()
	span.AddEvent("order.created",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.total", total.String()),
		),
	)

	return &CreateOrderResult{OrderID: entity.ID, Status: entity.Status(), Total: total}, nil
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func newValidation(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
