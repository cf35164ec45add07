package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(dec("0.125"), nil)
	require.NoError(t, err)
	return svc
}

func mustProduct(t *testing.T, name, price string) Product {
	t.Helper()
	p, err := NewProduct(name, dec(price))
	require.NoError(t, err)
	return p
}

func mustItem(t *testing.T, name, price string, qty int) Item {
	t.Helper()
	it, err := NewItem(mustProduct(t, name, price), qty)
	require.NoError(t, err)
	return it
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func TestNewService(t *testing.T) {
	for _, rate := range []string{"0", "0.125", "1"} {
		svc, err := NewService(dec(rate), nil)
		require.NoError(t, err, rate)
		assertDecimal(t, rate, svc.TaxRate())
	}

	for _, rate := range []string{"-0.01", "1.01"} {
		_, err := NewService(dec(rate), nil)
		assert.ErrorIs(t, err, ErrInvalidTaxRate, rate)
	}
}

func TestParseTaxRate(t *testing.T) {
	rate, err := ParseTaxRate("0.125")
	require.NoError(t, err)
	assertDecimal(t, "0.125", rate)

	rate, err = ParseTaxRate(" 0.2 ")
	require.NoError(t, err)
	assertDecimal(t, "0.2", rate)

	_, err = ParseTaxRate("twelve")
	assert.ErrorIs(t, err, ErrInvalidTaxRate)
}

func TestAddItem(t *testing.T) {
	svc := newTestService(t)

	t.Run("returns a new cart", func(t *testing.T) {
		empty := NewCart("c1", "u1")
		withOne, err := svc.AddItem(empty, mustItem(t, "Cheerios", "8.43", 1))
		require.NoError(t, err)

		assert.True(t, empty.IsEmpty())
		assert.Equal(t, 1, withOne.Len())
		assert.Equal(t, "c1", withOne.ID)
		assert.Equal(t, "u1", withOne.UserID)
		assert.False(t, withOne.UpdatedAt.IsZero())
	})

	t.Run("same product twice keeps two lines", func(t *testing.T) {
		c := NewCart("", "u1")
		var err error
		c, err = svc.AddItem(c, mustItem(t, "Corn Flakes", "2.52", 1))
		require.NoError(t, err)
		c, err = svc.AddItem(c, mustItem(t, "Corn Flakes", "2.52", 1))
		require.NoError(t, err)

		items := c.Items()
		require.Len(t, items, 2)
		assert.Equal(t, 1, items[0].Quantity)
		assert.Equal(t, 1, items[1].Quantity)
	})

	t.Run("items copy does not alias the cart", func(t *testing.T) {
		c := NewCart("", "u1", mustItem(t, "Frosties", "4.99", 1))
		items := c.Items()
		items[0].Quantity = 99
		assert.Equal(t, 1, c.Items()[0].Quantity)
	})

	t.Run("nil cart", func(t *testing.T) {
		_, err := svc.AddItem(nil, mustItem(t, "Frosties", "4.99", 1))
		assert.ErrorIs(t, err, ErrNilCart)
	})

	t.Run("invalid item", func(t *testing.T) {
		_, err := svc.AddItem(NewCart("", "u1"), Item{Product: Product{Name: "Frosties", Price: dec("4.99")}, Quantity: 0})
		assert.ErrorIs(t, err, ErrInvalidQuantity)

		_, err = svc.AddItem(NewCart("", "u1"), Item{Product: Product{Name: " "}, Quantity: 1})
		assert.ErrorIs(t, err, ErrInvalidProduct)
	})
}

func TestLineTotal(t *testing.T) {
	svc := newTestService(t)

	assertDecimal(t, "10.00", svc.LineTotal(mustItem(t, "Product", "2.50", 4)))
	assertDecimal(t, "9.99", svc.LineTotal(mustItem(t, "Product", "3.33", 3)))
}

func TestSubtotal(t *testing.T) {
	svc := newTestService(t)

	c := NewCart("", "u1",
		mustItem(t, "Product A", "10.00", 2),
		mustItem(t, "Product B", "5.50", 3),
	)
	subtotal, err := svc.Subtotal(c)
	require.NoError(t, err)
	assertDecimal(t, "36.50", subtotal)

	subtotal, err = svc.Subtotal(NewCart("", "u1"))
	require.NoError(t, err)
	assert.True(t, subtotal.IsZero())

	_, err = svc.Subtotal(nil)
	assert.ErrorIs(t, err, ErrNilCart)
}

func TestTax(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		subtotal string
		want     string
	}{
		{"100.00", "12.50"},
		{"200.00", "25.00"},
		{"15.02", "1.88"},
		{"10.01", "1.26"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got, err := svc.Tax(dec(tc.subtotal))
		require.NoError(t, err)
		assertDecimal(t, tc.want, got)
	}

	_, err := svc.Tax(dec("-1"))
	assert.ErrorIs(t, err, ErrNegativeSubtotal)
}

func TestTotals(t *testing.T) {
	svc := newTestService(t)

	t.Run("breakfast basket", func(t *testing.T) {
		c := NewCart("", "u1",
			mustItem(t, "Corn Flakes", "2.52", 2),
			mustItem(t, "Weetabix", "9.98", 1),
		)
		totals, err := svc.Totals(c)
		require.NoError(t, err)
		assertDecimal(t, "15.02", totals.Subtotal)
		assertDecimal(t, "1.88", totals.Tax)
		assertDecimal(t, "16.90", totals.Total)
	})

	t.Run("single hundred", func(t *testing.T) {
		totals, err := svc.Totals(NewCart("", "u1", mustItem(t, "Product", "100.00", 1)))
		require.NoError(t, err)
		assertDecimal(t, "100.00", totals.Subtotal)
		assertDecimal(t, "12.50", totals.Tax)
		assertDecimal(t, "112.50", totals.Total)
	})

	t.Run("subtotal rounds up", func(t *testing.T) {
		totals, err := svc.Totals(NewCart("", "u1", mustItem(t, "Product", "10.004", 1)))
		require.NoError(t, err)
		assertDecimal(t, "10.01", totals.Subtotal)
		assertDecimal(t, "1.26", totals.Tax)
		assertDecimal(t, "11.27", totals.Total)

		totals, err = svc.Totals(NewCart("", "u1", mustItem(t, "Product", "15.021", 1)))
		require.NoError(t, err)
		assertDecimal(t, "15.03", totals.Subtotal)
	})

	t.Run("empty cart", func(t *testing.T) {
		totals, err := svc.Totals(NewCart("", "u1"))
		require.NoError(t, err)
		assert.True(t, totals.Subtotal.IsZero())
		assert.True(t, totals.Tax.IsZero())
		assert.True(t, totals.Total.IsZero())
	})

	t.Run("nil cart", func(t *testing.T) {
		_, err := svc.Totals(nil)
		assert.ErrorIs(t, err, ErrNilCart)
	})

	t.Run("zero tax rate", func(t *testing.T) {
		free, err := NewService(decimal.Zero, nil)
		require.NoError(t, err)
		totals, err := free.Totals(NewCart("", "u1", mustItem(t, "Product", "3.33", 3)))
		require.NoError(t, err)
		assert.True(t, totals.Tax.IsZero())
		assertDecimal(t, "9.99", totals.Total)
	})
}
