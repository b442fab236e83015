package order

import "context"

// Repository loads and stores Order aggregates.
//
// FindByID returns ErrNotFound for unknown ids. Save is an upsert keyed by
// Order.ID; a later FindByID must reflect the saved lines and status.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	Save(ctx context.Context, order *Order) error
}
