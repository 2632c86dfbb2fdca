// Package ledger reconciles ordered quantity against the complete
// fulfillment history of an order line.
//
// Cumulative fulfilled quantity is the sum across ALL events referencing
// the line, never a single event's quantity field: a 10-unit line
// delivered as 4+6 has 10 delivered, and a derivation asked for "all
// remaining" must see 0, not re-offer the original 10.
package ledger

import (
	"github.com/shopspring/decimal"

	"tradecore/internal/core/types"
	"tradecore/internal/domain/source"
)

// Position is the reconciliation state of one order line.
type Position struct {
	Ordered   types.Quantity
	Delivered types.Quantity
	Invoiced  types.Quantity

	// Remaining is ordered minus the furthest-progressed fulfillment
	// dimension, clamped at zero.
	Remaining types.Quantity

	// Clamped is set when cumulative events exceed ordered quantity
	// (concurrent or erroneous upstream edits). Surfaced as a
	// reconciliation warning, not a hard failure.
	Clamped bool
}

// Remaining computes the position of an order line from its full event
// history. Events referencing other lines (or no line) are ignored.
// With no events at all, the full ordered quantity is remaining.
func Remaining(line source.OrderLine, events []source.FulfillmentEvent) Position {
	pos := Position{
		Ordered:   line.Quantity,
		Delivered: decimal.Zero,
		Invoiced:  decimal.Zero,
	}

	for _, ev := range events {
		if ev.SourceLineID == nil || *ev.SourceLineID != line.ID {
			continue
		}
		switch ev.Kind {
		case source.EventDelivery:
			pos.Delivered = pos.Delivered.Add(ev.Quantity)
		case source.EventInvoice:
			pos.Invoiced = pos.Invoiced.Add(ev.Quantity)
		}
	}

	fulfilled := pos.Delivered
	if pos.Invoiced.GreaterThan(fulfilled) {
		fulfilled = pos.Invoiced
	}

	pos.Remaining = pos.Ordered.Sub(fulfilled)
	if pos.Remaining.IsNegative() {
		pos.Remaining = decimal.Zero
	}
	if pos.Delivered.GreaterThan(pos.Ordered) || pos.Invoiced.GreaterThan(pos.Ordered) {
		pos.Clamped = true
	}

	return pos
}

// RemainingToInvoice is the uninvoiced portion of the ordered quantity,
// clamped at zero.
func (p Position) RemainingToInvoice() types.Quantity {
	r := p.Ordered.Sub(p.Invoiced)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// RemainingToDeliver is the undelivered portion of the ordered quantity,
// clamped at zero.
func (p Position) RemainingToDeliver() types.Quantity {
	r := p.Ordered.Sub(p.Delivered)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// InvoiceableNow is the quantity that has been delivered but not yet
// invoiced, capped by what remains invoiceable overall. This is the
// quantity an invoice derivation carries for the line when fulfillment
// events exist.
func (p Position) InvoiceableNow() types.Quantity {
	q := p.Delivered.Sub(p.Invoiced)
	if q.IsNegative() {
		return decimal.Zero
	}
	if limit := p.RemainingToInvoice(); q.GreaterThan(limit) {
		return limit
	}
	return q
}

// Fulfilled reports whether nothing remains on the line.
func (p Position) Fulfilled() bool {
	return p.Remaining.IsZero()
}
