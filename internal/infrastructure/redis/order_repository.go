package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	goredis "github.com/redis/go-redis/v9"
)

// OrderRepository stores each order as a JSON snapshot under <prefix>order:<id>.
type OrderRepository struct {
	rdb    goredis.Cmdable
	prefix string
}

func NewOrderRepository(rdb goredis.Cmdable, keyPrefix string) *OrderRepository {
	return &OrderRepository{rdb: rdb, prefix: keyPrefix}
}

func (r *OrderRepository) key(id string) string {
	return r.prefix + "order:" + id
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	raw, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get order %s: %w", id, err)
	}
	return decode(raw)
}

// Save overwrites the snapshot. No expiry is set.
func (r *OrderRepository) Save(ctx context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return errors.New("redis: order id is required")
	}
	raw, err := encode(o)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(o.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: set order %s: %w", o.ID, err)
	}
	return nil
}

func encode(o *domain.Order) ([]byte, error) {
	raw, err := json.Marshal(o.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("redis: encode order %s: %w", o.ID, err)
	}
	return raw, nil
}

func decode(raw []byte) (*domain.Order, error) {
	var s domain.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("redis: decode order: %w", err)
	}
	return domain.Restore(s)
}
