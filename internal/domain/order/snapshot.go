package order

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	"github.com/shopspring/decimal"
)

// Snapshot is the persistence shape of an Order. Storage adapters write
// snapshots and rebuild aggregates with Restore, so the invariants stay in
// this package.
type Snapshot struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id"`
	Status     Status         `json:"status"`
	Lines      []LineSnapshot `json:"lines"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type LineSnapshot struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
}

func (o *Order) Snapshot() Snapshot {
	lines := make([]LineSnapshot, 0, len(o.lines))
	for _, l := range o.lines {
		lines = append(lines, LineSnapshot{
			ProductID:   l.productID,
			ProductName: l.productName,
			Price:       l.price.Amount(),
			Currency:    l.price.Currency(),
			Quantity:    l.quantity,
		})
	}
	return Snapshot{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Status:     o.Status(),
		Lines:      lines,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

// Restore rebuilds an aggregate from a snapshot, re-validating every line
// and the single-currency rule AddLine enforces.
func Restore(s Snapshot) (*Order, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("order: restore: id is required")
	}
	state, err := stateFor(s.Status)
	if err != nil {
		return nil, fmt.Errorf("order: restore %s: %w", s.ID, err)
	}
	if state.Status() == StatusPaid && len(s.Lines) == 0 {
		return nil, fmt.Errorf("order: restore %s: %w", s.ID, ErrEmptyOrder)
	}

	lines := make([]Line, 0, len(s.Lines))
	seen := make(map[string]struct{}, len(s.Lines))
	for _, ls := range s.Lines {
		if _, dup := seen[ls.ProductID]; dup {
			return nil, fmt.Errorf("order: restore %s: %w: %s", s.ID, ErrDuplicateProduct, ls.ProductID)
		}
		seen[ls.ProductID] = struct{}{}

		price, err := money.New(ls.Price, ls.Currency)
		if err != nil {
			return nil, fmt.Errorf("order: restore %s: %w", s.ID, err)
		}
		if len(lines) > 0 && lines[0].price.Currency() != price.Currency() {
			return nil, fmt.Errorf("order: restore %s: %w: order is in %s, line is in %s",
				s.ID, money.ErrCurrencyMismatch, lines[0].price.Currency(), price.Currency())
		}
		line, err := NewLine(ls.ProductID, ls.ProductName, price, ls.Quantity)
		if err != nil {
			return nil, fmt.Errorf("order: restore %s: %w", s.ID, err)
		}
		lines = append(lines, line)
	}

	return &Order{
		ID:         s.ID,
		CustomerID: s.CustomerID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		state:      state,
		lines:      lines,
	}, nil
}
