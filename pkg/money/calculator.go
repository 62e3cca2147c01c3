package money

import "github.com/shopspring/decimal"

// Line is one priced cart or order line: quantity times unit price plus the
// selected option deltas.
type Line struct {
	Quantity     int
	UnitPrice    decimal.Decimal
	OptionPrices []decimal.Decimal
}

// Quote is the discount breakdown for a set of lines. Produced by a single
// code path so the cart promo preview and the order assembler always agree.
type Quote struct {
	Subtotal      decimal.Decimal
	DiscountValue decimal.Decimal
	Total         decimal.Decimal
}

// LineSubtotal computes quantity * (unit price + sum of option deltas).
func LineSubtotal(line Line) decimal.Decimal {
	unit := line.UnitPrice
	for _, opt := range line.OptionPrices {
		unit = unit.Add(opt)
	}
	return unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// Subtotal sums the line subtotals.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineSubtotal(line))
	}
	return total
}

// Compute derives the discount value and final total for the given lines and
// percentage discount. The discount is rounded to 2 decimal places and the
// total is clamped at zero.
func Compute(lines []Line, discountPercentage decimal.Decimal) Quote {
	return ComputeOnSubtotal(Subtotal(lines), discountPercentage)
}

// ComputeOnSubtotal applies the percentage discount to an already known
// subtotal.
func ComputeOnSubtotal(subtotal, discountPercentage decimal.Decimal) Quote {
	discount := subtotal.
		Mul(discountPercentage).
		Div(decimal.NewFromInt(100)).
		Round(2)

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:      subtotal,
		DiscountValue: discount,
		Total:         total,
	}
}
