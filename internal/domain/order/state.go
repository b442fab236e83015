package order

import "fmt"

// OrderState implements the state pattern for order lifecycle transitions.
type OrderState interface {
	Status() Status
	CanModify() error
	OnPay(o *Order) (OrderState, error)
}

type pendingState struct{}

func (pendingState) Status() Status { return StatusPending }

func (pendingState) CanModify() error { return nil }

func (pendingState) OnPay(*Order) (OrderState, error) {
	return paidState{}, nil
}

type paidState struct{}

func (paidState) Status() Status { return StatusPaid }

func (paidState) CanModify() error {
	return fmt.Errorf("cannot modify paid order: %w", ErrAlreadyPaid)
}

func (paidState) OnPay(*Order) (OrderState, error) {
	return nil, ErrAlreadyPaid
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusPending, "":
		return pendingState{}, nil
	case StatusPaid:
		return paidState{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}
