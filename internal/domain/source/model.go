// Package source defines the read-only upstream record shapes the
// derivation engine consumes: sales orders, quotations, deliveries and
// the fulfillment events recorded against order lines. These records are
// owned by upstream collaborators; the engine never writes them.
package source

import (
	"time"

	"tradecore/internal/core/id"
	"tradecore/internal/core/types"
)

// Order is a sales-order header.
type Order struct {
	ID         id.ID  `db:"id"`
	Number     string `db:"number"`
	CustomerID id.ID  `db:"customer_id"`
	// QuoteID links the order back to the customer quotation it was
	// accepted from, when one exists. There is no line-level foreign key;
	// quote lines are matched heuristically (see pricing.MatchQuoteLine).
	QuoteID  *id.ID `db:"quote_id"`
	Currency string `db:"currency"`

	// Header-level pricing defaults, tier 4 in attribute resolution.
	DiscountPercent *types.Money `db:"discount_percent"`
	VATPercent      *types.Money `db:"vat_percent"`
}

// OrderLine is a sales-order item.
type OrderLine struct {
	ID          id.ID   `db:"id"`
	OrderID     id.ID   `db:"order_id"`
	ItemID      *id.ID  `db:"item_id"`
	LineNo      int     `db:"line_no"`
	Description string  `db:"description"`

	Quantity  types.Quantity `db:"quantity"`
	UnitPrice types.Money    `db:"unit_price"`

	DiscountPercent *types.Money `db:"discount_percent"`
	DiscountAmount  *types.Money `db:"discount_amount"`
	VATPercent      *types.Money `db:"vat_percent"`
	VATAmount       *types.Money `db:"vat_amount"`
}

// Quote is a quotation header, customer- or supplier-side.
type Quote struct {
	ID         id.ID  `db:"id"`
	Number     string `db:"number"`
	SupplierID id.ID  `db:"supplier_id"`
	Currency   string `db:"currency"`

	DiscountPercent *types.Money `db:"discount_percent"`
	VATPercent      *types.Money `db:"vat_percent"`
}

// QuoteLine is a quotation item.
type QuoteLine struct {
	ID          id.ID  `db:"id"`
	QuoteID     id.ID  `db:"quote_id"`
	ItemID      *id.ID `db:"item_id"`
	LineNo      int    `db:"line_no"`
	Description string `db:"description"`

	Quantity  types.Quantity `db:"quantity"`
	UnitPrice types.Money    `db:"unit_price"`

	DiscountPercent *types.Money `db:"discount_percent"`
	DiscountAmount  *types.Money `db:"discount_amount"`
	VATPercent      *types.Money `db:"vat_percent"`
	VATAmount       *types.Money `db:"vat_amount"`
}

// Delivery is a delivery-note header.
// OrderID is a mandatory cross-reference for derivation: a delivery with
// no linked order cannot be invoiced.
type Delivery struct {
	ID       id.ID  `db:"id"`
	Number   string `db:"number"`
	OrderID  *id.ID `db:"order_id"`
	Currency string `db:"currency"`
}

// DeliveryLine is a delivery-note item.
type DeliveryLine struct {
	ID          id.ID  `db:"id"`
	DeliveryID  id.ID  `db:"delivery_id"`
	OrderLineID *id.ID `db:"order_line_id"`
	ItemID      *id.ID `db:"item_id"`
	Description string `db:"description"`

	DeliveredQuantity types.Quantity `db:"delivered_quantity"`
	PickedQuantity    types.Quantity `db:"picked_quantity"`
	OrderedQuantity   types.Quantity `db:"ordered_quantity"`
	UnitPrice         *types.Money   `db:"unit_price"`

	DiscountPercent *types.Money `db:"discount_percent"`
	DiscountAmount  *types.Money `db:"discount_amount"`
	VATPercent      *types.Money `db:"vat_percent"`
	VATAmount       *types.Money `db:"vat_amount"`
}

// EventKind distinguishes the two fulfillment dimensions recorded
// against an order line.
type EventKind string

const (
	EventDelivery EventKind = "delivery"
	EventInvoice  EventKind = "invoice"
)

// FulfillmentEvent is a quantity movement against an order line,
// originating from a delivery line or an invoice line. A line may be
// fulfilled across several partial events; cumulative quantity is always
// the sum over all events, never a single event's field.
type FulfillmentEvent struct {
	// SourceLineID may be nil for ad-hoc lines with no order reference.
	SourceLineID *id.ID `db:"source_line_id"`

	Kind     EventKind      `db:"kind"`
	Quantity types.Quantity `db:"quantity"`

	// Originating document reference.
	DocumentID     id.ID     `db:"document_id"`
	DocumentNumber string    `db:"document_number"`
	OccurredAt     time.Time `db:"occurred_at"`
}
