package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func line(price string, qty int) Line {
	return Line{UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func TestCalculate_CheckoutScenario(t *testing.T) {
	totals := Calculate([]Line{
		line("29.99", 2),
		line("79.99", 1),
	})

	require.Equal(t, "139.97", totals.Subtotal.String())
	require.True(t, totals.Shipping.IsZero(), "subtotal above threshold should ship free")
	require.Equal(t, "11.2", totals.Tax.String())
	require.Equal(t, "151.17", totals.Total.String())
}

func TestCalculate_ShippingThreshold(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		shipping string
	}{
		{"below threshold", []Line{line("49.99", 1)}, "5.99"},
		{"exactly at threshold", []Line{line("50.00", 1)}, "0"},
		{"above threshold", []Line{line("50.01", 1)}, "0"},
		{"just under via quantity", []Line{line("24.99", 2)}, "5.99"},
		{"at threshold via quantity", []Line{line("25.00", 2)}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := Calculate(tt.lines)
			require.Equal(t, tt.shipping, totals.Shipping.String())
		})
	}
}

func TestCalculate_TaxRounding(t *testing.T) {
	// 19.99 * 0.08 = 1.5992, rounds to 1.60
	totals := Calculate([]Line{line("19.99", 1)})
	require.Equal(t, "1.6", totals.Tax.String())
	// total = 19.99 + 5.99 + 1.60
	require.Equal(t, "27.58", totals.Total.String())
}

func TestCalculate_Deterministic(t *testing.T) {
	lines := []Line{line("29.99", 2), line("79.99", 1), line("5.49", 3)}

	first := Calculate(lines)
	second := Calculate(lines)

	require.Equal(t, first.Subtotal.String(), second.Subtotal.String())
	require.Equal(t, first.Shipping.String(), second.Shipping.String())
	require.Equal(t, first.Tax.String(), second.Tax.String())
	require.Equal(t, first.Total.String(), second.Total.String())
}

func TestCalculate_EmptyLines(t *testing.T) {
	totals := Calculate(nil)
	require.True(t, totals.Subtotal.IsZero())
	require.Equal(t, "5.99", totals.Shipping.String())
	require.True(t, totals.Tax.IsZero())
	require.Equal(t, "5.99", totals.Total.String())
}

func TestCalculate_NoIntermediateRounding(t *testing.T) {
	// Each line is 0.333 * 3 = 0.999; three lines accumulate to 2.997
	// exactly, rounding to 3.00 only at the boundary. Rounding per line
	// first would give 1.00 * 3 = 3.00 as well, so also check a case
	// that distinguishes: 1.005 * 1 rounds half away from zero to 1.01.
	totals := Calculate([]Line{line("0.333", 3), line("0.333", 3), line("0.333", 3)})
	require.Equal(t, "3", totals.Subtotal.String())

	single := Calculate([]Line{line("1.005", 1)})
	require.Equal(t, "1.01", single.Subtotal.String())
}
