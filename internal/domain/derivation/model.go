// Package derivation implements the document derivation orchestrator:
// deriving an invoice from a delivery (or directly from a sales order),
// and supplier purchase orders from one or more supplier quotes, without
// double-counting quantities or money across partial, out-of-order
// fulfillment events.
package derivation

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/entity"
	"tradecore/internal/core/id"
	"tradecore/internal/core/types"
	"tradecore/internal/domain/derivation/compute"
	"tradecore/internal/domain/derivation/pricing"
)

// DocumentType distinguishes the two derived document kinds.
type DocumentType string

const (
	TypeInvoice       DocumentType = "invoice"
	TypePurchaseOrder DocumentType = "purchase_order"
)

// Ref points at a source document a derivation consumed.
type Ref struct {
	Type   string `json:"type"`
	ID     id.ID  `json:"id"`
	Number string `json:"number,omitempty"`
}

// Refs is a JSONB-persisted list of source references.
type Refs []Ref

// MarshalRefs serializes refs for storage.
func MarshalRefs(refs Refs) (json.RawMessage, error) {
	return json.Marshal(refs)
}

// Line is one line of a derived document: the carried quantity, the
// resolved pricing, the computed financials and a free-text description.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// SourceLineID references the order/quote line this line was derived
	// from; nil for ad-hoc lines.
	SourceLineID *id.ID `db:"source_line_id" json:"sourceLineId,omitempty"`

	ItemID      id.ID  `db:"item_id" json:"itemId"`
	Description string `db:"description" json:"description"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`

	DiscountPercent types.Money `db:"discount_percent" json:"discountPercent"`
	VATPercent      types.Money `db:"vat_percent" json:"vatPercent"`

	Gross    types.Money `db:"gross" json:"gross"`
	Discount types.Money `db:"discount" json:"discount"`
	Net      types.Money `db:"net" json:"net"`
	VAT      types.Money `db:"vat" json:"vat"`
	Total    types.Money `db:"total" json:"total"`

	// PricingSource traces which ancestor tier supplied each attribute.
	PricingSource map[pricing.Attribute]pricing.Tier `db:"-" json:"pricingSource,omitempty"`
}

// newLine assembles a Line from its resolution and computation results.
func newLine(lineNo int, sourceLineID *id.ID, itemID id.ID, description string,
	qty types.Quantity, unitPrice types.Money,
	resolved pricing.ResolvedPricing, computed compute.ComputedLine) Line {
	return Line{
		LineID:          id.New(),
		LineNo:          lineNo,
		SourceLineID:    sourceLineID,
		ItemID:          itemID,
		Description:     description,
		Quantity:        qty,
		UnitPrice:       types.RoundUnitCost(unitPrice),
		DiscountPercent: resolved.DiscountPercent,
		VATPercent:      resolved.VATPercent,
		Gross:           computed.Gross,
		Discount:        computed.Discount,
		Net:             computed.Net,
		VAT:             computed.VAT,
		Total:           computed.Total,
		PricingSource:   resolved.Sources,
	}
}

// Invoice is a derived customer invoice.
type Invoice struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`

	Subtotal      types.Money `db:"subtotal" json:"subtotal"`
	DiscountTotal types.Money `db:"discount_total" json:"discountTotal"`
	VATTotal      types.Money `db:"vat_total" json:"vatTotal"`
	GrandTotal    types.Money `db:"grand_total" json:"grandTotal"`

	SourceRefs Refs `db:"-" json:"sourceRefs"`

	Lines []Line `db:"-" json:"lines"`

	// Warnings collected while deriving; recorded, never fatal.
	Warnings []Warning `db:"-" json:"warnings,omitempty"`
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(inv.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	return nil
}

// PurchaseOrder is a derived supplier purchase order (LPO).
type PurchaseOrder struct {
	entity.Document

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// GroupedBy records the grouping criterion that produced this
	// document ("supplier" or empty for a single-document derivation).
	GroupedBy string `db:"grouped_by" json:"groupedBy,omitempty"`

	Subtotal      types.Money `db:"subtotal" json:"subtotal"`
	DiscountTotal types.Money `db:"discount_total" json:"discountTotal"`
	VATTotal      types.Money `db:"vat_total" json:"vatTotal"`
	GrandTotal    types.Money `db:"grand_total" json:"grandTotal"`

	SourceRefs Refs `db:"-" json:"sourceRefs"`

	Lines []Line `db:"-" json:"lines"`

	Warnings []Warning `db:"-" json:"warnings,omitempty"`
}

// Validate implements entity.Validatable.
func (po *PurchaseOrder) Validate(ctx context.Context) error {
	if err := po.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(po.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if len(po.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	return nil
}

// computedOf reconstructs the computation result held on a line, used
// for the header-level consistency check.
func computedOf(l Line) compute.ComputedLine {
	return compute.ComputedLine{
		Gross:    l.Gross,
		Discount: l.Discount,
		Net:      l.Net,
		VAT:      l.VAT,
		Total:    l.Total,
	}
}

// Totals is the immutable header-level aggregate of a line set.
type Totals struct {
	Subtotal      types.Money
	DiscountTotal types.Money
	VATTotal      types.Money
	GrandTotal    types.Money
}

// SumLines folds a line set into header totals. A pure fold over already
// rounded per-line amounts; no running mutable state.
func SumLines(lines []Line) Totals {
	t := Totals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		VATTotal:      decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Net)
		t.DiscountTotal = t.DiscountTotal.Add(l.Discount)
		t.VATTotal = t.VATTotal.Add(l.VAT)
		t.GrandTotal = t.GrandTotal.Add(l.Total)
	}
	return t
}

// recoverTotals recomputes the subtotal from the sum of line totals when
// individual line computations are internally inconsistent. Recovery
// path before the zero-value check fails the derivation.
func recoverTotals(lines []Line) Totals {
	t := Totals{
		Subtotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		VATTotal:      decimal.Zero,
		GrandTotal:    decimal.Zero,
	}
	for _, l := range lines {
		t.VATTotal = t.VATTotal.Add(l.VAT)
		t.DiscountTotal = t.DiscountTotal.Add(l.Discount)
		t.GrandTotal = t.GrandTotal.Add(l.Total)
	}
	t.Subtotal = t.GrandTotal.Sub(t.VATTotal)
	return t
}
