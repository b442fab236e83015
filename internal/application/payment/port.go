package payment

import (
	"context"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
)

// Gateway is an outbound port for charging customers.
// It belongs to the application layer to express use-case dependencies.
//
// Charge reports an ordinary decline as (false, nil). A non-nil error is
// reserved for transport or contract failures.
type Gateway interface {
	Charge(ctx context.Context, orderID string, amount money.Money) (bool, error)
}
