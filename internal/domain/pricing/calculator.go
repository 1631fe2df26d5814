// internal/domain/pricing/calculator.go
package pricing

import "github.com/shopspring/decimal"

// Business rules for totals. Shipping is free at or above the threshold,
// otherwise a flat rate applies. Tax is a flat percentage of the subtotal.
var (
	FreeShippingThreshold = decimal.RequireFromString("50.00")
	FlatShippingRate      = decimal.RequireFromString("5.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

// Line is a single priced quantity of one product.
// Quantity must be positive; callers validate before reaching this package.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the complete pricing breakdown for a set of lines.
// All amounts are rounded to 2 decimal places.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Calculate derives the pricing breakdown for the given lines.
// It is a pure function: no I/O, no external state, deterministic for
// identical input. Accumulation is exact; rounding happens once per
// component at the end.
func Calculate(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(2)

	shipping := FlatShippingRate
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero.Round(2)
	}

	tax := subtotal.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
