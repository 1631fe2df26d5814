package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHasStockFor(t *testing.T) {
	p := Product{Stock: 3}

	require.True(t, p.HasStockFor(1))
	require.True(t, p.HasStockFor(3))
	require.False(t, p.HasStockFor(4))
	require.True(t, p.IsInStock())

	empty := Product{Stock: 0}
	require.False(t, empty.IsInStock())
	require.False(t, empty.HasStockFor(1))
}

func TestDiscountPercentage(t *testing.T) {
	compare := decimal.RequireFromString("100.00")
	p := Product{
		Price:        decimal.RequireFromString("75.00"),
		ComparePrice: &compare,
	}
	require.Equal(t, 25, p.DiscountPercentage())

	noCompare := Product{Price: decimal.RequireFromString("75.00")}
	require.Equal(t, 0, noCompare.DiscountPercentage())
}
