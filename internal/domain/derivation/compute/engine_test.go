package compute

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tradecore/internal/core/types"
)

func input(qty, price, discPct, discOver, vatPct, vatOver string) Input {
	return Input{
		Quantity:         types.MustMoney(qty),
		UnitPrice:        types.MustMoney(price),
		DiscountPercent:  types.MustMoney(discPct),
		DiscountOverride: types.MustMoney(discOver),
		VATPercent:       types.MustMoney(vatPct),
		VATOverride:      types.MustMoney(vatOver),
	}
}

func TestCompute_StandardLine(t *testing.T) {
	// quantity=10, unitPrice=100, discount 10%, VAT 5%
	got := Compute(input("10", "100", "10", "0", "5", "0"))

	assert.True(t, got.Gross.Equal(types.MustMoney("1000")), "gross: %s", got.Gross)
	assert.True(t, got.Discount.Equal(types.MustMoney("100")), "discount: %s", got.Discount)
	assert.True(t, got.Net.Equal(types.MustMoney("900")), "net: %s", got.Net)
	assert.True(t, got.VAT.Equal(types.MustMoney("45")), "vat: %s", got.VAT)
	assert.True(t, got.Total.Equal(types.MustMoney("945")), "total: %s", got.Total)
}

func TestCompute_OverrideBeatsPercent(t *testing.T) {
	got := Compute(input("2", "50", "10", "25", "16", "3.50"))

	assert.True(t, got.Gross.Equal(types.MustMoney("100")))
	assert.True(t, got.Discount.Equal(types.MustMoney("25")), "override discount wins: %s", got.Discount)
	assert.True(t, got.Net.Equal(types.MustMoney("75")))
	assert.True(t, got.VAT.Equal(types.MustMoney("3.50")), "override vat wins: %s", got.VAT)
	assert.True(t, got.Total.Equal(types.MustMoney("78.50")))
}

func TestCompute_DiscountCappedBelowGross(t *testing.T) {
	// Override discount larger than gross must cap at 99.9% of gross.
	got := Compute(input("1", "100", "0", "500", "0", "0"))

	assert.True(t, got.Discount.Equal(types.MustMoney("99.90")), "discount: %s", got.Discount)
	assert.True(t, got.Net.Equal(types.MustMoney("0.10")), "net: %s", got.Net)
	assert.False(t, got.Net.IsNegative())
}

func TestCompute_NetFloor(t *testing.T) {
	// 100% discount percent is capped, net never reaches zero.
	got := Compute(input("1", "0.05", "100", "0", "0", "0"))

	assert.True(t, got.Net.GreaterThanOrEqual(types.MustMoney("0.01")), "net: %s", got.Net)
}

func TestCompute_NoDiscountNoVAT(t *testing.T) {
	got := Compute(input("3", "19.99", "0", "0", "0", "0"))

	assert.True(t, got.Gross.Equal(types.MustMoney("59.97")))
	assert.True(t, got.Discount.IsZero())
	assert.True(t, got.Net.Equal(got.Gross))
	assert.True(t, got.VAT.IsZero())
	assert.True(t, got.Total.Equal(got.Net))
}

func TestCompute_RoundingToTwoPlaces(t *testing.T) {
	// 3 * 0.333 = 0.999 -> 1.00 after rounding; 7.77% VAT rounds too.
	got := Compute(input("3", "0.333", "0", "0", "7.77", "0"))

	assert.True(t, got.Gross.Equal(types.MustMoney("1.00")), "gross: %s", got.Gross)
	assert.True(t, got.VAT.Equal(types.MustMoney("0.08")), "vat: %s", got.VAT)
	assert.Equal(t, int32(-2), min32(got.VAT.Exponent(), 0), "vat rounded to 2 places")
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func TestCompute_Deterministic(t *testing.T) {
	in := input("7", "13.37", "12.5", "0", "16", "0")

	first := Compute(in)
	second := Compute(in)

	// Byte-identical output for identical inputs.
	assert.Equal(t, first.Gross.String(), second.Gross.String())
	assert.Equal(t, first.Discount.String(), second.Discount.String())
	assert.Equal(t, first.Net.String(), second.Net.String())
	assert.Equal(t, first.VAT.String(), second.VAT.String())
	assert.Equal(t, first.Total.String(), second.Total.String())
}

func TestCompute_Invariants(t *testing.T) {
	cases := []Input{
		input("10", "100", "10", "0", "5", "0"),
		input("1", "0.01", "99", "0", "20", "0"),
		input("250", "3.999", "0", "120.55", "16", "0"),
		input("1", "100", "0", "99.95", "0", "7.33"),
		input("0.5", "199.99", "50", "0", "8", "0"),
	}

	limit := decimal.RequireFromString("0.999")
	tolerance := types.MustMoney("0.01")

	for _, in := range cases {
		got := Compute(in)

		assert.False(t, got.Discount.IsNegative())
		assert.True(t, got.Discount.LessThanOrEqual(got.Gross.Mul(limit).Add(tolerance)),
			"discount %s exceeds %s * 0.999", got.Discount, got.Gross)
		assert.True(t, got.Net.GreaterThanOrEqual(types.MustMoney("0.01")))
		assert.True(t, got.Total.Sub(got.Net.Add(got.VAT)).Abs().LessThanOrEqual(tolerance),
			"total %s != net %s + vat %s", got.Total, got.Net, got.VAT)
		assert.True(t, got.Consistent())
	}
}

func TestComputedLine_ConsistentDetectsCorruption(t *testing.T) {
	good := Compute(input("10", "100", "10", "0", "5", "0"))
	assert.True(t, good.Consistent())

	bad := good
	bad.Total = bad.Total.Add(types.MustMoney("5"))
	assert.False(t, bad.Consistent())
}
