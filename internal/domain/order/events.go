package order

import "time"

// PaidEvent is emitted once an order has been charged and persisted.
type PaidEvent struct {
	OrderID    string
	CustomerID string
	Amount     string
	Currency   string
	OccurredAt time.Time
}

func (PaidEvent) EventName() string { return "order.paid" }

func NewPaidEvent(o *Order) PaidEvent {
	total := o.Total()
	return PaidEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Amount:     total.Amount().StringFixed(2),
		Currency:   total.Currency(),
		OccurredAt: time.Now().UTC(),
	}
}
