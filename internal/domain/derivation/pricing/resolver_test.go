package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradecore/internal/core/types"
)

func money(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

func TestResolve_PriorityOrder(t *testing.T) {
	candidates := []Candidate{
		{Tier: TierQuoteLine, DiscountPercent: money("5")},
		{Tier: TierOrderLine, DiscountPercent: money("10"), VATPercent: money("16")},
		{Tier: TierHeaderDefault, DiscountPercent: money("15"), VATPercent: money("8")},
	}

	resolved := Resolve(candidates)

	assert.True(t, resolved.DiscountPercent.Equal(types.MustMoney("5")), "first tier wins")
	assert.Equal(t, TierQuoteLine, resolved.Source(AttrDiscountPercent))
	assert.True(t, resolved.VATPercent.Equal(types.MustMoney("16")), "vat falls through to order line")
	assert.Equal(t, TierOrderLine, resolved.Source(AttrVATPercent))
}

func TestResolve_IndependentPerAttribute(t *testing.T) {
	candidates := []Candidate{
		{Tier: TierQuoteLine, VATAmount: money("12.50")},
		{Tier: TierOrderLine, DiscountAmount: money("30")},
		{Tier: TierDeliveryLine, DiscountPercent: money("2")},
	}

	resolved := Resolve(candidates)

	assert.True(t, resolved.VATAmount.Equal(types.MustMoney("12.50")))
	assert.True(t, resolved.DiscountAmount.Equal(types.MustMoney("30")))
	assert.True(t, resolved.DiscountPercent.Equal(types.MustMoney("2")))
	assert.Equal(t, TierQuoteLine, resolved.Source(AttrVATAmount))
	assert.Equal(t, TierOrderLine, resolved.Source(AttrDiscountAmount))
	assert.Equal(t, TierDeliveryLine, resolved.Source(AttrDiscountPercent))
}

func TestResolve_ZeroAndNilSkipped(t *testing.T) {
	zero := types.Zero()
	candidates := []Candidate{
		{Tier: TierQuoteLine, DiscountPercent: &zero}, // explicit zero, treated as absent
		{Tier: TierOrderLine},                         // nothing at all
		{Tier: TierHeaderDefault, DiscountPercent: money("7")},
	}

	resolved := Resolve(candidates)

	assert.True(t, resolved.DiscountPercent.Equal(types.MustMoney("7")))
	assert.Equal(t, TierHeaderDefault, resolved.Source(AttrDiscountPercent))
}

func TestResolve_EmptyChain(t *testing.T) {
	resolved := Resolve(nil)

	assert.True(t, resolved.DiscountPercent.IsZero())
	assert.True(t, resolved.DiscountAmount.IsZero())
	assert.True(t, resolved.VATPercent.IsZero())
	assert.True(t, resolved.VATAmount.IsZero())
	assert.Equal(t, TierZero, resolved.Source(AttrDiscountPercent))
	assert.Equal(t, TierZero, resolved.Source(AttrVATAmount))
	assert.False(t, resolved.HasDiscount())
	assert.False(t, resolved.HasVAT())
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "purchase_order_line", TierPurchaseOrderLine.String())
	assert.Equal(t, "quote_line", TierQuoteLine.String())
	assert.Equal(t, "zero", TierZero.String())
}
