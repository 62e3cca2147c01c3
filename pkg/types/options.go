package types

import "github.com/shopspring/decimal"

// OptionPrices maps an option name to its price delta. Stored as JSON on
// cart and order lines so later catalog edits never change historical prices.
type OptionPrices map[string]decimal.Decimal

// Sum returns the combined price delta of every selected option.
func (o OptionPrices) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, price := range o {
		total = total.Add(price)
	}
	return total
}

// Equal reports whether two selections carry the same options at the same
// price deltas.
func (o OptionPrices) Equal(other OptionPrices) bool {
	if len(o) != len(other) {
		return false
	}
	for name, price := range o {
		otherPrice, ok := other[name]
		if !ok || !price.Equal(otherPrice) {
			return false
		}
	}
	return true
}

// Values returns the option deltas in map iteration order.
func (o OptionPrices) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, len(o))
	for _, price := range o {
		values = append(values, price)
	}
	return values
}
