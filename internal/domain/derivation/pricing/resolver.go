// Package pricing resolves the effective discount and VAT attributes for
// a derived document line from an ordered chain of ancestor sources.
//
// Source data is frequently incomplete: a delivery line may carry no
// pricing, its order line only a discount, the quotation only a VAT
// rate. Resolution therefore runs independently per attribute over a
// prioritized candidate list and always produces some value, degrading
// to zero rather than failing the derivation. Every resolved attribute
// records the tier that supplied it so low-confidence fallbacks stay
// auditable.
package pricing

import (
	"tradecore/internal/core/types"
)

// Tier identifies where in the ancestor chain an attribute came from.
// Lower values win. The order is fixed by the derivation workflow:
// purchase-order line, matched quote line, matched order line, document
// header default, the delivery line itself, then zero.
type Tier int

const (
	TierPurchaseOrderLine Tier = iota
	TierQuoteLine
	TierOrderLine
	TierHeaderDefault
	TierDeliveryLine
	TierZero
)

// String returns the audit label for a tier.
func (t Tier) String() string {
	switch t {
	case TierPurchaseOrderLine:
		return "purchase_order_line"
	case TierQuoteLine:
		return "quote_line"
	case TierOrderLine:
		return "order_line"
	case TierHeaderDefault:
		return "header_default"
	case TierDeliveryLine:
		return "delivery_line"
	default:
		return "zero"
	}
}

// Attribute names one of the four resolvable pricing attributes.
type Attribute string

const (
	AttrDiscountPercent Attribute = "discount_percent"
	AttrDiscountAmount  Attribute = "discount_amount"
	AttrVATPercent      Attribute = "vat_percent"
	AttrVATAmount       Attribute = "vat_amount"
)

// Candidate is one ancestor's contribution to the chain. Nil means the
// ancestor does not carry that attribute; zero values are treated the
// same, since upstream tables default absent attributes to zero.
type Candidate struct {
	Tier Tier

	DiscountPercent *types.Money
	DiscountAmount  *types.Money
	VATPercent      *types.Money
	VATAmount       *types.Money
}

// ResolvedPricing is the per-line resolution result. Sources maps each
// attribute to the tier that supplied it (TierZero when nothing did).
type ResolvedPricing struct {
	DiscountPercent types.Money
	DiscountAmount  types.Money
	VATPercent      types.Money
	VATAmount       types.Money

	Sources map[Attribute]Tier
}

// attributes is the data-driven field table: priority comes from the
// candidate order, attribute access from here. New document types
// register their own candidate order, not new branching.
var attributes = []struct {
	name Attribute
	get  func(Candidate) *types.Money
	set  func(*ResolvedPricing, types.Money)
}{
	{AttrDiscountPercent,
		func(c Candidate) *types.Money { return c.DiscountPercent },
		func(r *ResolvedPricing, v types.Money) { r.DiscountPercent = v }},
	{AttrDiscountAmount,
		func(c Candidate) *types.Money { return c.DiscountAmount },
		func(r *ResolvedPricing, v types.Money) { r.DiscountAmount = v }},
	{AttrVATPercent,
		func(c Candidate) *types.Money { return c.VATPercent },
		func(r *ResolvedPricing, v types.Money) { r.VATPercent = v }},
	{AttrVATAmount,
		func(c Candidate) *types.Money { return c.VATAmount },
		func(r *ResolvedPricing, v types.Money) { r.VATAmount = v }},
}

// Resolve walks the candidate chain per attribute; the first positive
// value wins. Candidates must already be ordered by priority.
func Resolve(candidates []Candidate) ResolvedPricing {
	resolved := ResolvedPricing{
		Sources: make(map[Attribute]Tier, len(attributes)),
	}

	for _, attr := range attributes {
		resolved.Sources[attr.name] = TierZero
		for _, c := range candidates {
			if v := attr.get(c); types.IsPositive(v) {
				attr.set(&resolved, *v)
				resolved.Sources[attr.name] = c.Tier
				break
			}
		}
	}

	return resolved
}

// Source returns the tier that supplied an attribute.
func (r ResolvedPricing) Source(attr Attribute) Tier {
	if r.Sources == nil {
		return TierZero
	}
	if t, ok := r.Sources[attr]; ok {
		return t
	}
	return TierZero
}

// HasDiscount reports whether any discount attribute resolved non-zero.
func (r ResolvedPricing) HasDiscount() bool {
	return r.DiscountPercent.IsPositive() || r.DiscountAmount.IsPositive()
}

// HasVAT reports whether any VAT attribute resolved non-zero.
func (r ResolvedPricing) HasVAT() bool {
	return r.VATPercent.IsPositive() || r.VATAmount.IsPositive()
}
