package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/orderpay/internal/application"
	appOrder "github.com/Zhima-Mochi/orderpay/internal/application/order"
	appPayment "github.com/Zhima-Mochi/orderpay/internal/application/payment"
	domainOrder "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type (
	CreateOrderUseCase = application.UseCase[appOrder.CreateOrderInput, *appOrder.CreateOrderResult]
	GetOrderUseCase    = application.UseCase[appOrder.GetOrderInput, *domainOrder.Order]
	PayOrderUseCase    = application.UseCase[appPayment.PayOrderInput, *appPayment.PayOrderResult]
)

type Handler struct {
	createOrder CreateOrderUseCase
	getOrder    GetOrderUseCase
	payOrder    PayOrderUseCase

	log          observability.Logger
	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	tracerName           = "orderpay.http"
)

func NewHandler(
	createOrder CreateOrderUseCase,
	getOrder GetOrderUseCase,
	payOrder PayOrderUseCase,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		createOrder:  createOrder,
		getOrder:     getOrder,
		payOrder:     payOrder,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

// Router builds the chi router. Callers may mount more routes (e.g. /metrics)
// on the returned router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Trace → ObservabilityMiddleware (request logger) → Access log → HTTP metrics → Handler
	h.handle(r, http.MethodPost, "/orders", h.handleCreateOrder)
	h.handle(r, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.handle(r, http.MethodPost, "/orders/{id}/pay", h.handlePayOrder)
	h.handle(r, http.MethodGet, "/health", h.handleHealth)

	return r
}

func (h *Handler) handle(r chi.Router, method, pattern string, handler http.HandlerFunc) {
	route := method + " " + pattern
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
		)(
			h.withAccessLog(
				h.withHTTPMetrics(handler),
			),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

type lineRequest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Quantity    int    `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID string        `json:"customer_id"`
	Lines      []lineRequest `json:"lines"`
}

type createOrderResponse struct {
	OrderID  string             `json:"order_id"`
	Status   domainOrder.Status `json:"status"`
	Total    string             `json:"total"`
	Currency string             `json:"currency"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lines := make([]appOrder.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, appOrder.LineInput{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.Price,
			Currency:    l.Currency,
			Quantity:    l.Quantity,
		})
	}

	result, err := h.createOrder.Execute(r.Context(), appOrder.CreateOrderInput{
		CustomerID: req.CustomerID,
		Lines:      lines,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/orders/"+result.OrderID)
	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:  result.OrderID,
		Status:   result.Status,
		Total:    result.Total.Amount().StringFixed(2),
		Currency: result.Total.Currency(),
	})
}

type lineResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
}

type orderResponse struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customer_id"`
	Status     domainOrder.Status `json:"status"`
	Lines      []lineResponse     `json:"lines"`
	Total      string             `json:"total"`
	Currency   string             `json:"currency"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func newOrderResponse(o *domainOrder.Order) orderResponse {
	lines := make([]lineResponse, 0, len(o.Lines()))
	for _, l := range o.Lines() {
		lines = append(lines, lineResponse{
			ProductID:   l.ProductID(),
			ProductName: l.ProductName(),
			UnitPrice:   l.Price().Amount().StringFixed(2),
			Quantity:    l.Quantity(),
			Total:       l.Total().Amount().StringFixed(2),
		})
	}
	total := o.Total()
	return orderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status(),
		Lines:      lines,
		Total:      total.Amount().StringFixed(2),
		Currency:   total.Currency(),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.getOrder.Execute(r.Context(), appOrder.GetOrderInput{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func (h *Handler) handlePayOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.payOrder.Execute(r.Context(), appPayment.PayOrderInput{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, payStatus(result), result)
}

// payStatus maps an unsuccessful result onto an HTTP status by its code.
func payStatus(result *appPayment.PayOrderResult) int {
	if result.Success {
		return http.StatusOK
	}
	switch result.Code {
	case appPayment.CodeOrderNotFound:
		return http.StatusNotFound
	case appPayment.CodeChargeDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusConflict
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newStatusRecorder(w)

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		route := routeFromContext(parentCtx)

		ctx, span := tracer.Start(parentCtx,
			route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := newStatusRecorder(w)
		next.ServeHTTP(lrw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newStatusRecorder(w)

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appOrder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appOrder.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
