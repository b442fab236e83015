package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/orderpay/internal/domain/order"
)

// OrderRepository keeps orders in a map keyed by id. Reads and writes go
// through Clone, so callers never alias the stored aggregate.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return order.Clone(), nil
}

// Save stores order under its id, replacing any previous version.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = order.Clone()
	return nil
}

// Len reports how many orders are stored.
func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
