package order

import (
	"fmt"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
)

// Line is one product entry of an order. It is immutable once built.
type Line struct {
	productID   string
	productName string
	price       money.Money
	quantity    int
}

func NewLine(productID, productName string, price money.Money, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	return Line{
		productID:   productID,
		productName: productName,
		price:       price,
		quantity:    quantity,
	}, nil
}

func (l Line) ProductID() string   { return l.productID }
func (l Line) ProductName() string { return l.productName }
func (l Line) Price() money.Money  { return l.price }
func (l Line) Quantity() int       { return l.quantity }

// Total is the unit price multiplied by the quantity.
func (l Line) Total() money.Money {
	return l.price.Mul(int64(l.quantity))
}
