package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestLineSubtotalWithOptions(t *testing.T) {
	line := Line{
		Quantity:     2,
		UnitPrice:    dec("45.00"),
		OptionPrices: []decimal.Decimal{dec("3.00")},
	}
	assert.True(t, LineSubtotal(line).Equal(dec("96.00")))
}

func TestComputeTenPercent(t *testing.T) {
	lines := []Line{{
		Quantity:     2,
		UnitPrice:    dec("45.00"),
		OptionPrices: []decimal.Decimal{dec("3.00")},
	}}

	quote := Compute(lines, dec("10"))
	assert.True(t, quote.Subtotal.Equal(dec("96.00")), "subtotal %s", quote.Subtotal)
	assert.True(t, quote.DiscountValue.Equal(dec("9.60")), "discount %s", quote.DiscountValue)
	assert.True(t, quote.Total.Equal(dec("86.40")), "total %s", quote.Total)
}

func TestComputeRoundsDiscountToTwoPlaces(t *testing.T) {
	quote := ComputeOnSubtotal(dec("10.01"), dec("33.33"))
	assert.True(t, quote.DiscountValue.Equal(dec("3.34")), "discount %s", quote.DiscountValue)
}

func TestComputeNeverGoesNegative(t *testing.T) {
	quote := ComputeOnSubtotal(dec("10.00"), dec("100"))
	assert.True(t, quote.Total.IsZero())

	quote = ComputeOnSubtotal(decimal.Zero, dec("50"))
	assert.True(t, quote.Total.IsZero())
	assert.True(t, quote.DiscountValue.IsZero())
}

func TestComputeZeroDiscount(t *testing.T) {
	quote := ComputeOnSubtotal(dec("42.50"), decimal.Zero)
	assert.True(t, quote.DiscountValue.IsZero())
	assert.True(t, quote.Total.Equal(dec("42.50")))
}

func TestSubtotalEmptyLines(t *testing.T) {
	assert.True(t, Subtotal(nil).IsZero())
}
