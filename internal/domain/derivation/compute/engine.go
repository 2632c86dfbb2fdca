// Package compute turns a quantity, a unit price and resolved pricing
// attributes into line financials: gross, discount, net, VAT, total.
//
// The engine is pure arithmetic with no side effects: identical inputs
// yield byte-identical output, which the derivation workflow relies on
// for idempotent re-derivation. All monetary values are rounded to two
// decimal places before aggregation so rounding drift cannot compound
// across many lines.
package compute

import (
	"github.com/shopspring/decimal"

	"tradecore/internal/core/types"
)

var (
	hundred = decimal.NewFromInt(100)

	// maxDiscountRatio caps the discount at 99.9% of gross so a line can
	// never be discounted to a zero or negative net.
	maxDiscountRatio = decimal.RequireFromString("0.999")

	// minNet is the floor for net amount.
	minNet = decimal.RequireFromString("0.01")
)

// Input holds the computation parameters for one line. Override amounts
// take precedence over percentages when positive.
type Input struct {
	Quantity         types.Quantity
	UnitPrice        types.Money
	DiscountPercent  types.Money
	DiscountOverride types.Money
	VATPercent       types.Money
	VATOverride      types.Money
}

// ComputedLine is the result: every amount non-negative and rounded to
// 2 decimal places.
type ComputedLine struct {
	Gross    types.Money `json:"gross"`
	Discount types.Money `json:"discount"`
	Net      types.Money `json:"net"`
	VAT      types.Money `json:"vat"`
	Total    types.Money `json:"total"`
}

// Compute derives line financials from quantity, unit price and resolved
// discount/VAT attributes.
//
//	gross    = quantity * unitPrice
//	discount = override if > 0, else gross * discountPercent / 100,
//	           capped at gross * 0.999
//	net      = max(0.01, gross - discount)
//	vat      = override if > 0, else net * vatPercent / 100
//	total    = net + vat
func Compute(in Input) ComputedLine {
	gross := types.RoundMoney(in.Quantity.Mul(in.UnitPrice))

	var discount types.Money
	if in.DiscountOverride.IsPositive() {
		discount = in.DiscountOverride
	} else {
		discount = gross.Mul(in.DiscountPercent).Div(hundred)
	}
	discount = types.RoundMoney(discount)

	// Never discount a line to zero or negative net.
	maxDiscount := types.RoundMoney(gross.Mul(maxDiscountRatio))
	if discount.GreaterThan(maxDiscount) {
		discount = maxDiscount
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	net := gross.Sub(discount)
	if net.LessThan(minNet) {
		net = minNet
	}
	net = types.RoundMoney(net)

	var vat types.Money
	if in.VATOverride.IsPositive() {
		vat = in.VATOverride
	} else {
		vat = net.Mul(in.VATPercent).Div(hundred)
	}
	vat = types.RoundMoney(vat)
	if vat.IsNegative() {
		vat = decimal.Zero
	}

	total := types.RoundMoney(net.Add(vat))

	return ComputedLine{
		Gross:    gross,
		Discount: discount,
		Net:      net,
		VAT:      vat,
		Total:    total,
	}
}

// Consistent reports whether the line's internal arithmetic holds within
// a one-cent rounding tolerance. Inconsistent lines trigger the
// subtotal-recovery path in the orchestrator.
func (c ComputedLine) Consistent() bool {
	tolerance := minNet // 0.01
	diff := c.Total.Sub(c.Net.Add(c.VAT)).Abs()
	if diff.GreaterThan(tolerance) {
		return false
	}
	diff = c.Gross.Sub(c.Discount).Sub(c.Net).Abs()
	// Net may exceed gross-discount only via the 0.01 floor.
	return diff.LessThanOrEqual(tolerance) || c.Net.Equal(minNet)
}
