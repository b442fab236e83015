package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("order: not found")
	ErrInvalidStatus = errors.New("order: unknown status")
)

// Rule violations. Their text reaches callers verbatim through payment
// results, so it carries no package prefix.
var (
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrDuplicateProduct = errors.New("product already in order")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrEmptyOrder       = errors.New("cannot pay empty order")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusPaid
}

// Order is the aggregate root. It owns its lines exclusively; callers only
// ever see copies of them.
type Order struct {
	ID         string
	CustomerID string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	state OrderState
	lines []Line
}

// New returns a pending order without lines. An empty id is replaced by a
// freshly generated UUID.
func New(id, customerID string) *Order {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return &Order{
		ID:         id,
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
		state:      pendingState{},
	}
}

func (o *Order) Status() Status {
	return o.currentState().Status()
}

// Lines returns the order lines in insertion order.
func (o *Order) Lines() []Line {
	return append([]Line(nil), o.lines...)
}

// AddLine appends a new product line. Lines are rejected once the order is
// paid, when the product is already present, or when the quantity is not
// positive. All lines of one order share a currency.
func (o *Order) AddLine(productID, productName string, price money.Money, quantity int) error {
	if err := o.currentState().CanModify(); err != nil {
		return err
	}
	for _, l := range o.lines {
		if l.productID == productID {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, productID)
		}
	}

	line, err := NewLine(productID, productName, price, quantity)
	if err != nil {
		return err
	}
	if len(o.lines) > 0 && o.lines[0].price.Currency() != price.Currency() {
		return fmt.Errorf("%w: order is in %s, line is in %s",
			money.ErrCurrencyMismatch, o.lines[0].price.Currency(), price.Currency())
	}

	o.lines = append(o.lines, line)
	o.touch()
	return nil
}

// Pay moves a non-empty pending order to paid. It is not idempotent: paying
// a paid order always fails.
func (o *Order) Pay() error {
	if len(o.lines) == 0 {
		return ErrEmptyOrder
	}
	next, err := o.currentState().OnPay(o)
	if err != nil {
		return err
	}
	o.state = next
	o.touch()
	return nil
}

// Total sums every line total. An order without lines totals zero in the
// default currency. AddLine and Restore keep one currency per order, and Total
// panics if that invariant is broken.
func (o *Order) Total() money.Money {
	if len(o.lines) == 0 {
		return money.Zero(money.DefaultCurrency)
	}

	total := money.Zero(o.lines[0].price.Currency())
	for _, l := range o.lines {
		next, err := total.Add(l.Total())
		if err != nil {
			panic(fmt.Sprintf("order %s: %v", o.ID, err))
		}
		total = next
	}
	return total
}

// Clone returns a deep copy that shares no mutable state with o.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.lines = o.Lines()
	return &clone
}

func (o *Order) currentState() OrderState {
	if o.state == nil {
		return pendingState{}
	}
	return o.state
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
