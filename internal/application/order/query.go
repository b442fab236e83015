package order

import (
	"context"
	"errors"

	domain "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	"github.com/Zhima-Mochi/orderpay/internal/observability"
	"github.com/Zhima-Mochi/orderpay/internal/observability/logctx"
)

type GetOrderInput struct {
	OrderID string
}

// GetOrderUseCase loads a single order for display.
type GetOrderUseCase struct {
	repo domain.Repository
	log  observability.Logger
}

func NewGetOrderUseCase(repo domain.Repository, tel observability.Observability) *GetOrderUseCase {
	if tel == nil {
		tel = observability.Nop()
	}
	return &GetOrderUseCase{
		repo: repo,
		log:  tel.Logger().With(observability.F("service", orderService)),
	}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (*domain.Order, error) {
	if cmd.OrderID == "" {
		return nil, newValidation(errors.New("order id is required"))
	}
	o, err := uc.repo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logctx.FromOr(ctx, uc.log).Error("order_lookup_failed",
				observability.F("use_case", useCaseOrderGet),
				observability.F("order_id", cmd.OrderID),
				observability.Err(err),
			)
		}
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}
