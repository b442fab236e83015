package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is supplied.
const DefaultCurrency = "USD"

var (
	ErrInvalidAmount    = errors.New("amount cannot be negative")
	ErrCurrencyMismatch = errors.New("cannot add money with different currencies")
)

// Money is an immutable amount in a single currency. The zero value is not
// meaningful; build values with New or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func New(amount decimal.Decimal, currency string) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount.String())
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNew is like New but panics on a negative amount. Intended for literals and tests.
func MustNew(amount decimal.Decimal, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{amount: decimal.Zero, currency: currency}
}

// Parse builds Money from a decimal string such as "19.99".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse amount %q: %w", amount, err)
	}
	return New(d, currency)
}

func (m Money) Amount() decimal.Decimal { return m.amount }

func (m Money) Currency() string { return m.currency }

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Mul scales the amount by a non-negative factor.
func (m Money) Mul(factor int64) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(factor)), currency: m.currency}
}

// Equal compares amount numerically, so 1.0 USD equals 1.00 USD.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + m.currency
}
