package gateway

import (
	"context"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
)

const componentGateway = "payment_gateway"

// Fake approves every charge. It never talks to a real processor.
type Fake struct {
	log observability.Logger
}

func NewFake(logger observability.Logger) *Fake {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Fake{log: logger.With(observability.F("component", componentGateway))}
}

func (g *Fake) Charge(ctx context.Context, orderID string, amount money.Money) (bool, error) {
	logctx.FromOr(ctx, g.log).Info("payment_charged",
		observability.F("gateway", "fake"),
		observability.F("order_id", orderID),
		observability.F("amount", amount.String()),
	)
	return true, nil
}
