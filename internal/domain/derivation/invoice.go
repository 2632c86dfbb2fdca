package derivation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/entity"
	"tradecore/internal/core/id"
	"tradecore/internal/core/types"
	"tradecore/internal/domain/derivation/compute"
	"tradecore/internal/domain/derivation/ledger"
	"tradecore/internal/domain/derivation/pricing"
	"tradecore/internal/domain/source"
	"tradecore/pkg/logger"
)

// DeriveInvoiceRequest selects the source for an invoice derivation.
// Exactly one of DeliveryID or OrderID drives the derivation; when only
// the order is given (no delivery exists yet), virtual lines are
// synthesized from the order lines.
type DeriveInvoiceRequest struct {
	DeliveryID *id.ID
	OrderID    *id.ID

	// SelectedLineIDs restricts processing to the given delivery/order
	// lines; empty means all lines.
	SelectedLineIDs []id.ID

	Comment string
}

// invoiceLineInput pairs a delivery line with its order line for one
// processing pass. deliveryLine is nil for virtual lines synthesized
// from the order; orderLine is nil for ad-hoc delivery lines.
type invoiceLineInput struct {
	orderLine    *source.OrderLine
	deliveryLine *source.DeliveryLine
	position     int
}

// DeriveInvoice derives a customer invoice from a delivery or directly
// from a sales order. Line-level problems degrade gracefully (skip,
// fallback, synthesize); header-level and persistence problems fail fast
// with nothing persisted.
func (s *Service) DeriveInvoice(ctx context.Context, req DeriveInvoiceRequest) (*Invoice, error) {
	ctx, span := tracer.Start(ctx, "derivation.invoice")
	defer span.End()

	sink := &warningSink{}

	order, delivery, refs, err := s.resolveInvoiceSource(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	inputs, err := s.collectInvoiceInputs(ctx, order, delivery, req.SelectedLineIDs)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, apperror.NewNoSourceLines(refs[0].Type, refs[0].ID)
	}

	quoteLines, quoteHeader := s.loadQuotation(ctx, order)

	orderLineIDs := make([]id.ID, 0, len(inputs))
	for _, in := range inputs {
		if in.orderLine != nil {
			orderLineIDs = append(orderLineIDs, in.orderLine.ID)
		}
	}
	events, err := s.sources.FulfillmentEvents(ctx, orderLineIDs)
	if err != nil {
		return nil, fmt.Errorf("load fulfillment events: %w", err)
	}

	// consumed tracks quantity already carried per order line within this
	// pass: several delivery lines may reference the same order line, and
	// each must draw from the same invoiceable balance, not re-read it.
	consumed := make(map[id.ID]types.Quantity, len(inputs))

	var lines []Line
	for _, in := range inputs {
		line, ok := s.buildInvoiceLine(ctx, in, order, quoteHeader, quoteLines, events, consumed, sink)
		if ok {
			line.LineNo = len(lines) + 1
			lines = append(lines, line)
			if line.SourceLineID != nil {
				consumed[*line.SourceLineID] = consumed[*line.SourceLineID].Add(line.Quantity)
			}
		}
	}

	if len(lines) == 0 {
		return nil, apperror.NewNoSourceLines(refs[0].Type, refs[0].ID)
	}

	totals, err := finalizeTotals(ctx, lines, sink)
	if err != nil {
		return nil, err
	}

	currency := order.Currency
	if currency == "" && delivery != nil {
		currency = delivery.Currency
	}
	if currency == "" {
		currency = defaultCurrency
	}

	inv := &Invoice{
		Document:      entity.NewDocument(currency),
		CustomerID:    order.CustomerID,
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		VATTotal:      totals.VATTotal,
		GrandTotal:    totals.GrandTotal,
		SourceRefs:    refs,
		Lines:         lines,
	}
	inv.Comment = req.Comment
	inv.CreatedBy = actorID(ctx)
	inv.MarkIssued()

	inv.Number, err = s.nextNumber(ctx, "INV")
	if err != nil {
		return nil, err
	}

	renumber := func(ctx context.Context) error {
		n, err := s.nextNumber(ctx, "INV")
		if err != nil {
			return err
		}
		inv.Number = n
		return nil
	}
	err = s.persist(ctx, sink, inv.ClearAuditActor, renumber, func(ctx context.Context) error {
		return s.invoices.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	inv.Warnings = sink.warnings

	span.SetAttributes(
		attribute.String("invoice.number", inv.Number),
		attribute.Int("invoice.lines", len(lines)),
		attribute.Int("invoice.warnings", len(sink.warnings)),
	)

	logger.Info(ctx, "invoice derived",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"lines", len(lines),
		"grand_total", inv.GrandTotal.String(),
		"warnings", len(sink.warnings))

	s.recordAudit(ctx, AuditEntry{
		DocumentType:   TypeInvoice,
		DocumentID:     inv.ID,
		DocumentNumber: inv.Number,
		SourceRefs:     refs,
		Warnings:       sink.warnings,
	})

	return inv, nil
}

// resolveInvoiceSource loads the order (and delivery, when given) and
// assembles the source references. A delivery with no linked order is a
// mandatory cross-reference failure.
func (s *Service) resolveInvoiceSource(ctx context.Context, req DeriveInvoiceRequest) (*source.Order, *source.Delivery, Refs, error) {
	var (
		delivery *source.Delivery
		orderID  id.ID
		refs     Refs
		err      error
	)

	switch {
	case req.DeliveryID != nil && !id.IsNil(*req.DeliveryID):
		delivery, err = s.sources.Delivery(ctx, *req.DeliveryID)
		if err != nil {
			return nil, nil, nil, err
		}
		if delivery.OrderID == nil || id.IsNil(*delivery.OrderID) {
			return nil, nil, nil, apperror.NewMissingCrossRef("delivery", "order")
		}
		orderID = *delivery.OrderID
		refs = append(refs, Ref{Type: "delivery", ID: delivery.ID, Number: delivery.Number})

	case req.OrderID != nil && !id.IsNil(*req.OrderID):
		orderID = *req.OrderID

	default:
		return nil, nil, nil, apperror.NewValidation("a delivery or order reference is required").
			WithDetail("field", "deliveryId")
	}

	order, err := s.sources.Order(ctx, orderID)
	if err != nil {
		return nil, nil, nil, err
	}
	refs = append(refs, Ref{Type: "order", ID: order.ID, Number: order.Number})

	return order, delivery, refs, nil
}

// collectInvoiceInputs resolves the set of lines to process: delivery
// lines joined to their order lines, or virtual lines synthesized from
// the order when no delivery lines exist yet.
func (s *Service) collectInvoiceInputs(ctx context.Context, order *source.Order, delivery *source.Delivery, selectedIDs []id.ID) ([]invoiceLineInput, error) {
	orderLines, err := s.sources.OrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	byID := make(map[id.ID]*source.OrderLine, len(orderLines))
	for i := range orderLines {
		byID[orderLines[i].ID] = &orderLines[i]
	}

	sel := selected(selectedIDs)
	var inputs []invoiceLineInput

	if delivery != nil {
		deliveryLines, err := s.sources.DeliveryLines(ctx, delivery.ID)
		if err != nil {
			return nil, fmt.Errorf("load delivery lines: %w", err)
		}
		if len(deliveryLines) > 0 {
			for i := range deliveryLines {
				dl := &deliveryLines[i]
				if sel != nil && !sel[dl.ID] && (dl.OrderLineID == nil || !sel[*dl.OrderLineID]) {
					continue
				}
				var ol *source.OrderLine
				if dl.OrderLineID != nil {
					ol = byID[*dl.OrderLineID]
				}
				inputs = append(inputs, invoiceLineInput{orderLine: ol, deliveryLine: dl, position: i})
			}
			return inputs, nil
		}
		logger.Info(ctx, "delivery has no lines, synthesizing virtual lines from order",
			"delivery_id", delivery.ID, "order_id", order.ID)
	}

	// Virtual lines straight from the order.
	for i := range orderLines {
		ol := &orderLines[i]
		if sel != nil && !sel[ol.ID] {
			continue
		}
		inputs = append(inputs, invoiceLineInput{orderLine: ol, position: i})
	}
	return inputs, nil
}

// loadQuotation loads the order's upstream quotation for pricing
// borrowing. Absence is normal, failures degrade to no quotation.
func (s *Service) loadQuotation(ctx context.Context, order *source.Order) ([]source.QuoteLine, *source.Quote) {
	if order.QuoteID == nil || id.IsNil(*order.QuoteID) {
		return nil, nil
	}
	quote, err := s.sources.Quote(ctx, *order.QuoteID)
	if err != nil {
		logger.Warn(ctx, "quotation unavailable for pricing",
			"quote_id", order.QuoteID.String(), "error", err)
		return nil, nil
	}
	quoteLines, err := s.sources.QuoteLines(ctx, quote.ID)
	if err != nil {
		logger.Warn(ctx, "quotation lines unavailable for pricing",
			"quote_id", quote.ID, "error", err)
		return nil, quote
	}
	return quoteLines, quote
}

// buildInvoiceLine carries one input line through quantity
// reconciliation, item resolution, pricing resolution and computation.
// Returns ok=false when the line is skipped (never fatal).
func (s *Service) buildInvoiceLine(
	ctx context.Context,
	in invoiceLineInput,
	order *source.Order,
	quoteHeader *source.Quote,
	quoteLines []source.QuoteLine,
	events map[id.ID][]source.FulfillmentEvent,
	consumed map[id.ID]types.Quantity,
	sink *warningSink,
) (Line, bool) {
	qty, sourceLineID := s.invoiceQuantity(ctx, in, events, consumed, sink)
	if !qty.IsPositive() {
		sink.add(WarnLineSkipped, "no invoiceable quantity remains", sourceLineID, nil)
		return Line{}, false
	}

	unitPrice := invoiceUnitPrice(in)
	if !unitPrice.IsPositive() {
		sink.add(WarnLineSkipped, "no unit price resolvable", sourceLineID, nil)
		return Line{}, false
	}

	description := lineDescription(in)

	var itemRef *id.ID
	if in.deliveryLine != nil && in.deliveryLine.ItemID != nil {
		itemRef = in.deliveryLine.ItemID
	} else if in.orderLine != nil {
		itemRef = in.orderLine.ItemID
	}

	resolvedItem, synthesized, err := s.items.Resolve(ctx, itemRef, description)
	if err != nil {
		logger.Error(ctx, "item resolution failed, skipping line",
			"source_line_id", sourceLineID, "error", err)
		sink.add(WarnLineSkipped, "item resolution failed", sourceLineID,
			map[string]any{"error": err.Error()})
		return Line{}, false
	}
	if synthesized {
		sink.add(WarnPlaceholderItem, "item reference resolved via synthesized placeholder",
			sourceLineID, map[string]any{"item_code": resolvedItem.Code})
	}
	if description == "" {
		description = resolvedItem.Description
	}

	candidates := s.invoicePricingCandidates(ctx, in, order, quoteHeader, quoteLines, sink)
	resolved := pricing.Resolve(candidates)

	computed := compute.Compute(compute.Input{
		Quantity:         qty,
		UnitPrice:        unitPrice,
		DiscountPercent:  resolved.DiscountPercent,
		DiscountOverride: resolved.DiscountAmount,
		VATPercent:       resolved.VATPercent,
		VATOverride:      resolved.VATAmount,
	})

	return newLine(0, sourceLineID, resolvedItem.ID, description, qty, unitPrice, resolved, computed), true
}

// invoiceQuantity determines the quantity to carry: the aggregate of
// fulfillment events when any exist (delivered minus invoiced, capped by
// what remains invoiceable), the delivery line's moved quantity when the
// line has no recorded history, and the ordered quantity for virtual
// lines. Quantity already carried by earlier lines of this pass
// (consumed) is deducted so duplicate references to one order line
// cannot invoice the same balance twice.
func (s *Service) invoiceQuantity(ctx context.Context, in invoiceLineInput, events map[id.ID][]source.FulfillmentEvent, consumed map[id.ID]types.Quantity, sink *warningSink) (types.Quantity, *id.ID) {
	if in.orderLine == nil {
		// Ad-hoc delivery line with no order reference.
		if in.deliveryLine == nil {
			return types.Zero(), nil
		}
		return movedQuantity(in.deliveryLine), nil
	}

	lineID := in.orderLine.ID
	history := events[lineID]

	pos := ledger.Remaining(*in.orderLine, history)
	if pos.Clamped {
		logger.Warn(ctx, "cumulative fulfillment exceeds ordered quantity, clamped",
			"order_line_id", lineID,
			"ordered", pos.Ordered.String(),
			"delivered", pos.Delivered.String(),
			"invoiced", pos.Invoiced.String())
		sink.add(WarnOverFulfillment, "cumulative fulfillment exceeds ordered quantity",
			&lineID, map[string]any{
				"ordered":   pos.Ordered.String(),
				"delivered": pos.Delivered.String(),
				"invoiced":  pos.Invoiced.String(),
			})
	}

	already := consumed[lineID]

	if len(history) > 0 {
		return pos.InvoiceableNow().Sub(already), &lineID
	}

	// First fulfillment: no events recorded yet.
	if in.deliveryLine != nil {
		qty := movedQuantity(in.deliveryLine)
		if room := pos.Remaining.Sub(already); qty.GreaterThan(room) {
			qty = room
		}
		return qty, &lineID
	}
	return in.orderLine.Quantity.Sub(already), &lineID
}

// movedQuantity prefers the delivered quantity, falling back to picked.
func movedQuantity(dl *source.DeliveryLine) types.Quantity {
	if dl.DeliveredQuantity.IsPositive() {
		return dl.DeliveredQuantity
	}
	return dl.PickedQuantity
}

// invoiceUnitPrice resolves the unit price: delivery line, then order line.
func invoiceUnitPrice(in invoiceLineInput) types.Money {
	if in.deliveryLine != nil && types.IsPositive(in.deliveryLine.UnitPrice) {
		return *in.deliveryLine.UnitPrice
	}
	if in.orderLine != nil {
		return in.orderLine.UnitPrice
	}
	return types.Zero()
}

// lineDescription prefers the order line's text over the delivery line's.
func lineDescription(in invoiceLineInput) string {
	if in.orderLine != nil && in.orderLine.Description != "" {
		return in.orderLine.Description
	}
	if in.deliveryLine != nil {
		return in.deliveryLine.Description
	}
	return ""
}

// invoicePricingCandidates assembles the ancestor chain in priority
// order: matched quote line, order line, header defaults, delivery line.
func (s *Service) invoicePricingCandidates(
	ctx context.Context,
	in invoiceLineInput,
	order *source.Order,
	quoteHeader *source.Quote,
	quoteLines []source.QuoteLine,
	sink *warningSink,
) []pricing.Candidate {
	var candidates []pricing.Candidate

	if in.orderLine != nil && len(quoteLines) > 0 {
		matched, method := pricing.MatchQuoteLine(*in.orderLine, in.position, quoteLines)
		if matched != nil {
			if method.LowConfidence() {
				logger.Warn(ctx, "quote line matched via low-confidence fallback",
					"order_line_id", in.orderLine.ID, "method", string(method))
				lineID := in.orderLine.ID
				sink.add(WarnLowConfidenceTier, "pricing matched via low-confidence fallback",
					&lineID, map[string]any{"method": string(method)})
			}
			candidates = append(candidates, pricing.Candidate{
				Tier:            pricing.TierQuoteLine,
				DiscountPercent: matched.DiscountPercent,
				DiscountAmount:  matched.DiscountAmount,
				VATPercent:      matched.VATPercent,
				VATAmount:       matched.VATAmount,
			})
		}
	}

	if in.orderLine != nil {
		candidates = append(candidates, pricing.Candidate{
			Tier:            pricing.TierOrderLine,
			DiscountPercent: in.orderLine.DiscountPercent,
			DiscountAmount:  in.orderLine.DiscountAmount,
			VATPercent:      in.orderLine.VATPercent,
			VATAmount:       in.orderLine.VATAmount,
		})
	}

	header := pricing.Candidate{
		Tier:            pricing.TierHeaderDefault,
		DiscountPercent: order.DiscountPercent,
		VATPercent:      order.VATPercent,
	}
	if quoteHeader != nil {
		if header.DiscountPercent == nil {
			header.DiscountPercent = quoteHeader.DiscountPercent
		}
		if header.VATPercent == nil {
			header.VATPercent = quoteHeader.VATPercent
		}
	}
	candidates = append(candidates, header)

	if in.deliveryLine != nil {
		candidates = append(candidates, pricing.Candidate{
			Tier:            pricing.TierDeliveryLine,
			DiscountPercent: in.deliveryLine.DiscountPercent,
			DiscountAmount:  in.deliveryLine.DiscountAmount,
			VATPercent:      in.deliveryLine.VATPercent,
			VATAmount:       in.deliveryLine.VATAmount,
		})
	}

	return candidates
}
