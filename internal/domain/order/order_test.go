package order

import (
	"testing"

	"github.com/Zhima-Mochi/orderpay/internal/domain/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(s string) money.Money {
	return money.MustNew(decimal.RequireFromString(s), "USD")
}

func TestNew(t *testing.T) {
	o := New("", "customer_123")

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "customer_123", o.CustomerID)
	assert.Equal(t, StatusPending, o.Status())
	assert.Empty(t, o.Lines())
	assert.False(t, o.CreatedAt.IsZero())

	other := New("", "customer_123")
	assert.NotEqual(t, o.ID, other.ID, "generated ids must be unique")

	fixed := New("order-1", "customer_123")
	assert.Equal(t, "order-1", fixed.ID)
}

func TestNewLine(t *testing.T) {
	testCases := map[string]struct {
		quantity    int
		expectedErr error
	}{
		"should accept positive quantity": {quantity: 3},
		"should reject zero quantity":     {quantity: 0, expectedErr: ErrInvalidQuantity},
		"should reject negative quantity": {quantity: -1, expectedErr: ErrInvalidQuantity},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			line, err := NewLine("prod_1", "Product 1", usd("10"), tc.quantity)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "prod_1", line.ProductID())
			assert.Equal(t, "Product 1", line.ProductName())
			assert.Equal(t, tc.quantity, line.Quantity())
			assert.True(t, line.Total().Equal(usd("30")))
		})
	}
}

func TestOrder_AddLine(t *testing.T) {
	o := New("", "customer_123")

	require.NoError(t, o.AddLine("prod_1", "Product 1", usd("100"), 2))
	require.NoError(t, o.AddLine("prod_2", "Product 2", usd("5.25"), 1))

	lines := o.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "prod_1", lines[0].ProductID())
	assert.Equal(t, "prod_2", lines[1].ProductID())
}

func TestOrder_AddLine_Rejections(t *testing.T) {
	testCases := map[string]struct {
		prepare     func(t *testing.T, o *Order)
		productID   string
		price       money.Money
		quantity    int
		expectedErr error
	}{
		"should reject duplicate product regardless of other fields": {
			prepare: func(t *testing.T, o *Order) {
				require.NoError(t, o.AddLine("prod_1", "Product 1", usd("100"), 1))
			},
			productID:   "prod_1",
			price:       usd("1"),
			quantity:    7,
			expectedErr: ErrDuplicateProduct,
		},
		"should reject non-positive quantity": {
			productID:   "prod_1",
			price:       usd("1"),
			quantity:    0,
			expectedErr: ErrInvalidQuantity,
		},
		"should reject lines on paid order": {
			prepare: func(t *testing.T, o *Order) {
				require.NoError(t, o.AddLine("prod_1", "Product 1", usd("100"), 1))
				require.NoError(t, o.Pay())
			},
			productID:   "prod_2",
			price:       usd("1"),
			quantity:    1,
			expectedErr: ErrAlreadyPaid,
		},
		"should reject a second currency": {
			prepare: func(t *testing.T, o *Order) {
				require.NoError(t, o.AddLine("prod_1", "Product 1", usd("100"), 1))
			},
			productID:   "prod_2",
			price:       money.MustNew(decimal.NewFromInt(1), "EUR"),
			quantity:    1,
			expectedErr: money.ErrCurrencyMismatch,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			o := New("", "customer_123")
			if tc.prepare != nil {
				tc.prepare(t, o)
			}
			before := len(o.Lines())

			err := o.AddLine(tc.productID, "Other", tc.price, tc.quantity)

			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Len(t, o.Lines(), before)
		})
	}
}

func TestOrder_Pay(t *testing.T) {
	o := New("", "customer_123")
	require.NoError(t, o.AddLine("prod_1", "Product 1", usd("100"), 2))

	require.NoError(t, o.Pay())
	assert.Equal(t, StatusPaid, o.Status())

	err := o.Pay()
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Contains(t, err.Error(), "already")
	assert.Equal(t, StatusPaid, o.Status())
}

func TestOrder_Pay_Empty(t *testing.T) {
	o := New("", "customer_123")

	err := o.Pay()

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Contains(t, err.Error(), "empty")
	assert.Equal(t, StatusPending, o.Status())
}

func TestOrder_ErrorMessages(t *testing.T) {
	empty := New("", "customer_123")
	assert.EqualError(t, empty.Pay(), "cannot pay empty order")

	o := New("", "customer_123")
	require.NoError(t, o.AddLine("p1", "P1", usd("1"), 1))
	assert.EqualError(t, o.AddLine("p1", "P1", usd("1"), 1), "product already in order: p1")
	assert.EqualError(t, o.AddLine("p2", "P2", usd("1"), 0), "quantity must be positive: got 0")

	require.NoError(t, o.Pay())
	assert.EqualError(t, o.Pay(), "order already paid")
	assert.EqualError(t, o.AddLine("p3", "P3", usd("1"), 1), "cannot modify paid order: order already paid")
}

func TestOrder_Total(t *testing.T) {
	testCases := map[string]struct {
		lines    [][3]string // product, price, quantity
		expected money.Money
	}{
		"should be zero USD without lines": {
			expected: money.Zero("USD"),
		},
		"should multiply single line": {
			lines:    [][3]string{{"p1", "100", "2"}},
			expected: usd("200"),
		},
		"should sum every line": {
			lines:    [][3]string{{"p1", "0.10", "3"}, {"p2", "19.99", "1"}, {"p3", "2.50", "4"}},
			expected: usd("30.29"),
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			o := New("", "customer_123")
			for _, l := range tc.lines {
				qty := int(decimal.RequireFromString(l[2]).IntPart())
				require.NoError(t, o.AddLine(l[0], l[0], usd(l[1]), qty))
			}
			assert.True(t, o.Total().Equal(tc.expected), "got %s want %s", o.Total(), tc.expected)
		})
	}
}

func TestOrder_Total_KeepsLineCurrency(t *testing.T) {
	o := New("", "customer_123")
	eur := money.MustNew(decimal.NewFromInt(3), "EUR")
	require.NoError(t, o.AddLine("p1", "P1", eur, 2))

	assert.Equal(t, "6.00 EUR", o.Total().String())
}

func TestOrder_Total_PanicsOnMixedCurrencies(t *testing.T) {
	usdLine, err := NewLine("p1", "P1", usd("1"), 1)
	require.NoError(t, err)
	eurLine, err := NewLine("p2", "P2", money.MustNew(decimal.NewFromInt(1), "EUR"), 1)
	require.NoError(t, err)

	o := New("o1", "customer_123")
	o.lines = []Line{usdLine, eurLine}

	assert.Panics(t, func() { o.Total() })
}

func TestOrder_LinesAreCopies(t *testing.T) {
	o := New("", "customer_123")
	require.NoError(t, o.AddLine("p1", "P1", usd("1"), 1))

	lines := o.Lines()
	lines[0] = Line{}

	assert.Equal(t, "p1", o.Lines()[0].ProductID())
}

func TestOrder_Clone(t *testing.T) {
	o := New("", "customer_123")
	require.NoError(t, o.AddLine("p1", "P1", usd("1"), 1))

	clone := o.Clone()
	require.NoError(t, clone.AddLine("p2", "P2", usd("1"), 1))
	require.NoError(t, clone.Pay())

	assert.Len(t, o.Lines(), 1)
	assert.Equal(t, StatusPending, o.Status())
	assert.Equal(t, StatusPaid, clone.Status())
}

func TestRestore(t *testing.T) {
	o := New("order-1", "customer_123")
	require.NoError(t, o.AddLine("p1", "P1", usd("12.34"), 2))
	require.NoError(t, o.Pay())

	restored, err := Restore(o.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, o.ID, restored.ID)
	assert.Equal(t, o.CustomerID, restored.CustomerID)
	assert.Equal(t, StatusPaid, restored.Status())
	assert.True(t, restored.Total().Equal(usd("24.68")))
	assert.ErrorIs(t, restored.Pay(), ErrAlreadyPaid)
}

func TestRestore_Invalid(t *testing.T) {
	valid := LineSnapshot{ProductID: "p1", Price: decimal.NewFromInt(1), Currency: "USD", Quantity: 1}

	testCases := map[string]struct {
		snapshot    Snapshot
		expectedErr error
	}{
		"should reject unknown status": {
			snapshot:    Snapshot{ID: "o1", Status: "shipped", Lines: []LineSnapshot{valid}},
			expectedErr: ErrInvalidStatus,
		},
		"should reject paid order without lines": {
			snapshot:    Snapshot{ID: "o1", Status: StatusPaid},
			expectedErr: ErrEmptyOrder,
		},
		"should reject duplicate lines": {
			snapshot:    Snapshot{ID: "o1", Status: StatusPending, Lines: []LineSnapshot{valid, valid}},
			expectedErr: ErrDuplicateProduct,
		},
		"should reject negative price": {
			snapshot: Snapshot{ID: "o1", Status: StatusPending, Lines: []LineSnapshot{
				{ProductID: "p1", Price: decimal.NewFromInt(-1), Currency: "USD", Quantity: 1},
			}},
			expectedErr: money.ErrInvalidAmount,
		},
		"should reject zero quantity": {
			snapshot: Snapshot{ID: "o1", Status: StatusPending, Lines: []LineSnapshot{
				{ProductID: "p1", Price: decimal.NewFromInt(1), Currency: "USD"},
			}},
			expectedErr: ErrInvalidQuantity,
		},
		"should reject mixed currencies": {
			snapshot: Snapshot{ID: "o1", Status: StatusPaid, Lines: []LineSnapshot{
				valid,
				{ProductID: "p2", Price: decimal.NewFromInt(1), Currency: "EUR", Quantity: 1},
			}},
			expectedErr: money.ErrCurrencyMismatch,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Restore(tc.snapshot)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
