package dto

import (
	"time"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/id"
	"tradecore/internal/domain/derivation"
)

// --- Requests ---

// DeriveInvoiceRequest selects the source for an invoice derivation.
// Exactly one of deliveryId or orderId must be given.
type DeriveInvoiceRequest struct {
	DeliveryID      *string  `json:"deliveryId"`
	OrderID         *string  `json:"orderId"`
	SelectedLineIDs []string `json:"selectedLineIds"`
	Comment         string   `json:"comment"`
}

// ToDomain converts the request, validating all identifiers.
func (r DeriveInvoiceRequest) ToDomain() (derivation.DeriveInvoiceRequest, error) {
	var req derivation.DeriveInvoiceRequest

	deliveryID, err := parseOptionalID(r.DeliveryID, "deliveryId")
	if err != nil {
		return req, err
	}
	orderID, err := parseOptionalID(r.OrderID, "orderId")
	if err != nil {
		return req, err
	}
	selected, err := parseIDs(r.SelectedLineIDs, "selectedLineIds")
	if err != nil {
		return req, err
	}

	req.DeliveryID = deliveryID
	req.OrderID = orderID
	req.SelectedLineIDs = selected
	req.Comment = r.Comment
	return req, nil
}

// DerivePurchaseOrdersRequest selects supplier quotes for an LPO derivation.
type DerivePurchaseOrdersRequest struct {
	QuoteIDs        []string `json:"quoteIds" binding:"required,min=1"`
	GroupBySupplier bool     `json:"groupBySupplier"`
	SelectedLineIDs []string `json:"selectedLineIds"`
	Comment         string   `json:"comment"`
}

// ToDomain converts the request, validating all identifiers.
func (r DerivePurchaseOrdersRequest) ToDomain() (derivation.DeriveLPORequest, error) {
	var req derivation.DeriveLPORequest

	quoteIDs, err := parseIDs(r.QuoteIDs, "quoteIds")
	if err != nil {
		return req, err
	}
	selected, err := parseIDs(r.SelectedLineIDs, "selectedLineIds")
	if err != nil {
		return req, err
	}

	req.QuoteIDs = quoteIDs
	req.GroupBySupplier = r.GroupBySupplier
	req.SelectedLineIDs = selected
	req.Comment = r.Comment
	return req, nil
}

// --- Responses ---

// LineResponse is one derived document line. Monetary amounts are
// decimal strings to avoid float precision loss in clients.
type LineResponse struct {
	LineID       string  `json:"lineId"`
	LineNo       int     `json:"lineNo"`
	SourceLineID *string `json:"sourceLineId,omitempty"`
	ItemID       string  `json:"itemId"`
	Description  string  `json:"description"`

	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unitPrice"`

	DiscountPercent string `json:"discountPercent"`
	VATPercent      string `json:"vatPercent"`

	Gross    string `json:"gross"`
	Discount string `json:"discount"`
	Net      string `json:"net"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`

	PricingSource map[string]string `json:"pricingSource,omitempty"`
}

// WarningResponse is one derivation warning.
type WarningResponse struct {
	Code         string         `json:"code"`
	Message      string         `json:"message"`
	SourceLineID *string        `json:"sourceLineId,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// RefResponse is a source-document reference.
type RefResponse struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Number string `json:"number,omitempty"`
}

// InvoiceResponse is a derived invoice.
type InvoiceResponse struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Currency   string    `json:"currency"`
	CustomerID string    `json:"customerId"`
	Comment    string    `json:"comment,omitempty"`

	Subtotal      string `json:"subtotal"`
	DiscountTotal string `json:"discountTotal"`
	VATTotal      string `json:"vatTotal"`
	GrandTotal    string `json:"grandTotal"`

	SourceRefs []RefResponse     `json:"sourceRefs"`
	Lines      []LineResponse    `json:"lines"`
	Warnings   []WarningResponse `json:"warnings,omitempty"`
}

// FromInvoice maps a domain invoice to its response shape.
func FromInvoice(inv *derivation.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID.String(),
		Number:        inv.Number,
		Date:          inv.Date,
		Status:        string(inv.Status),
		Currency:      inv.Currency,
		CustomerID:    inv.CustomerID.String(),
		Comment:       inv.Comment,
		Subtotal:      inv.Subtotal.String(),
		DiscountTotal: inv.DiscountTotal.String(),
		VATTotal:      inv.VATTotal.String(),
		GrandTotal:    inv.GrandTotal.String(),
		SourceRefs:    fromRefs(inv.SourceRefs),
		Lines:         fromLines(inv.Lines),
		Warnings:      fromWarnings(inv.Warnings),
	}
}

// PurchaseOrderResponse is a derived supplier purchase order.
type PurchaseOrderResponse struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Currency   string    `json:"currency"`
	SupplierID string    `json:"supplierId"`
	GroupedBy  string    `json:"groupedBy,omitempty"`
	Comment    string    `json:"comment,omitempty"`

	Subtotal      string `json:"subtotal"`
	DiscountTotal string `json:"discountTotal"`
	VATTotal      string `json:"vatTotal"`
	GrandTotal    string `json:"grandTotal"`

	SourceRefs []RefResponse     `json:"sourceRefs"`
	Lines      []LineResponse    `json:"lines"`
	Warnings   []WarningResponse `json:"warnings,omitempty"`
}

// FromPurchaseOrder maps a domain purchase order to its response shape.
func FromPurchaseOrder(po *derivation.PurchaseOrder) PurchaseOrderResponse {
	return PurchaseOrderResponse{
		ID:            po.ID.String(),
		Number:        po.Number,
		Date:          po.Date,
		Status:        string(po.Status),
		Currency:      po.Currency,
		SupplierID:    po.SupplierID.String(),
		GroupedBy:     po.GroupedBy,
		Comment:       po.Comment,
		Subtotal:      po.Subtotal.String(),
		DiscountTotal: po.DiscountTotal.String(),
		VATTotal:      po.VATTotal.String(),
		GrandTotal:    po.GrandTotal.String(),
		SourceRefs:    fromRefs(po.SourceRefs),
		Lines:         fromLines(po.Lines),
		Warnings:      fromWarnings(po.Warnings),
	}
}

// FromPurchaseOrders maps a batch derivation result.
func FromPurchaseOrders(pos []*derivation.PurchaseOrder) []PurchaseOrderResponse {
	out := make([]PurchaseOrderResponse, 0, len(pos))
	for _, po := range pos {
		out = append(out, FromPurchaseOrder(po))
	}
	return out
}

// --- helpers ---

func fromRefs(refs derivation.Refs) []RefResponse {
	out := make([]RefResponse, 0, len(refs))
	for _, ref := range refs {
		out = append(out, RefResponse{Type: ref.Type, ID: ref.ID.String(), Number: ref.Number})
	}
	return out
}

func fromLines(lines []derivation.Line) []LineResponse {
	out := make([]LineResponse, 0, len(lines))
	for _, l := range lines {
		lr := LineResponse{
			LineID:          l.LineID.String(),
			LineNo:          l.LineNo,
			SourceLineID:    idString(l.SourceLineID),
			ItemID:          l.ItemID.String(),
			Description:     l.Description,
			Quantity:        l.Quantity.String(),
			UnitPrice:       l.UnitPrice.String(),
			DiscountPercent: l.DiscountPercent.String(),
			VATPercent:      l.VATPercent.String(),
			Gross:           l.Gross.String(),
			Discount:        l.Discount.String(),
			Net:             l.Net.String(),
			VAT:             l.VAT.String(),
			Total:           l.Total.String(),
		}
		if len(l.PricingSource) > 0 {
			lr.PricingSource = make(map[string]string, len(l.PricingSource))
			for attr, tier := range l.PricingSource {
				lr.PricingSource[string(attr)] = tier.String()
			}
		}
		out = append(out, lr)
	}
	return out
}

func fromWarnings(warnings []derivation.Warning) []WarningResponse {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, WarningResponse{
			Code:         w.Code,
			Message:      w.Message,
			SourceLineID: idString(w.SourceLineID),
			Details:      w.Details,
		})
	}
	return out
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func parseOptionalID(s *string, field string) (*id.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	parsed, err := id.Parse(*s)
	if err != nil {
		return nil, apperror.NewValidation("invalid identifier").WithDetail("field", field)
	}
	return &parsed, nil
}

func parseIDs(ss []string, field string) ([]id.ID, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]id.ID, 0, len(ss))
	for _, s := range ss {
		parsed, err := id.Parse(s)
		if err != nil {
			return nil, apperror.NewValidation("invalid identifier").
				WithDetail("field", field).
				WithDetail("value", s)
		}
		out = append(out, parsed)
	}
	return out, nil
}
