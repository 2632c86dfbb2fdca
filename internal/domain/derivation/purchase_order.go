package derivation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/entity"
	"tradecore/internal/core/id"
	"tradecore/internal/domain/derivation/compute"
	"tradecore/internal/domain/derivation/pricing"
	"tradecore/internal/domain/source"
	"tradecore/pkg/logger"
)

// DeriveLPORequest selects supplier quotes for a purchase-order
// derivation. With GroupBySupplier set, contributing lines are
// partitioned by the supplier of their originating quote and one
// purchase order is created per supplier; otherwise all quotes feed a
// single document under the first quote's supplier.
type DeriveLPORequest struct {
	QuoteIDs []id.ID

	GroupBySupplier bool

	// SelectedLineIDs restricts processing to the given quote lines;
	// empty means all lines.
	SelectedLineIDs []id.ID

	Comment string
}

// quoteGroup is one supplier's slice of the derivation.
type quoteGroup struct {
	supplierID id.ID
	quotes     []*source.Quote
	lines      []source.QuoteLine
}

// DerivePurchaseOrders derives one or more supplier purchase orders from
// the given quotes. Each resulting document is numbered and persisted
// independently and atomically; a group whose lines all degrade to
// nothing is skipped with a warning rather than producing a zero-value
// document.
func (s *Service) DerivePurchaseOrders(ctx context.Context, req DeriveLPORequest) ([]*PurchaseOrder, error) {
	ctx, span := tracer.Start(ctx, "derivation.purchase_orders")
	defer span.End()

	if len(req.QuoteIDs) == 0 {
		return nil, apperror.NewValidation("at least one quote reference is required").
			WithDetail("field", "quoteIds")
	}

	groups, err := s.groupQuotes(ctx, req)
	if err != nil {
		return nil, err
	}

	var results []*PurchaseOrder

	for _, group := range groups {
		po, err := s.deriveGroup(ctx, req, group)
		if err != nil {
			return nil, err
		}
		if po == nil {
			continue // group degraded to nothing, warning already recorded
		}
		results = append(results, po)
	}

	if len(results) == 0 {
		return nil, apperror.NewNoSourceLines("quote", req.QuoteIDs[0])
	}

	span.SetAttributes(
		attribute.Int("lpo.documents", len(results)),
		attribute.Int("lpo.quotes", len(req.QuoteIDs)),
		attribute.Bool("lpo.group_by_supplier", req.GroupBySupplier),
	)

	return results, nil
}

// groupQuotes loads the quotes with their lines and partitions them by
// supplier when requested, preserving input order.
func (s *Service) groupQuotes(ctx context.Context, req DeriveLPORequest) ([]*quoteGroup, error) {
	var (
		order  []*quoteGroup
		byKey  = make(map[id.ID]*quoteGroup)
		single *quoteGroup
	)

	for _, quoteID := range req.QuoteIDs {
		quote, err := s.sources.Quote(ctx, quoteID)
		if err != nil {
			return nil, err
		}
		lines, err := s.sources.QuoteLines(ctx, quoteID)
		if err != nil {
			return nil, fmt.Errorf("load quote lines: %w", err)
		}

		var group *quoteGroup
		if req.GroupBySupplier {
			group = byKey[quote.SupplierID]
			if group == nil {
				group = &quoteGroup{supplierID: quote.SupplierID}
				byKey[quote.SupplierID] = group
				order = append(order, group)
			}
		} else {
			if single == nil {
				single = &quoteGroup{supplierID: quote.SupplierID}
				order = append(order, single)
			}
			group = single
		}

		group.quotes = append(group.quotes, quote)
		group.lines = append(group.lines, lines...)
	}

	return order, nil
}

// deriveGroup assembles, numbers and persists one purchase order.
// Returns nil (no error) when every line in the group was skipped.
// Each group gets its own warning sink so a document's warnings and
// audit entry carry only the events its own lines raised.
func (s *Service) deriveGroup(ctx context.Context, req DeriveLPORequest, group *quoteGroup) (*PurchaseOrder, error) {
	sink := &warningSink{}
	sel := selected(req.SelectedLineIDs)
	headerByQuote := make(map[id.ID]*source.Quote, len(group.quotes))
	for _, q := range group.quotes {
		headerByQuote[q.ID] = q
	}

	var lines []Line
	for i := range group.lines {
		ql := &group.lines[i]
		if sel != nil && !sel[ql.ID] {
			continue
		}

		line, ok := s.buildLPOLine(ctx, ql, headerByQuote[ql.QuoteID], sink)
		if ok {
			line.LineNo = len(lines) + 1
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		logger.Warn(ctx, "supplier group produced no processable lines, skipping",
			"supplier_id", group.supplierID)
		sink.add(WarnLineSkipped, "supplier group produced no processable lines", nil,
			map[string]any{"supplier_id": group.supplierID.String()})
		return nil, nil
	}

	totals, err := finalizeTotals(ctx, lines, sink)
	if err != nil {
		return nil, err
	}

	currency := group.quotes[0].Currency
	if currency == "" {
		currency = defaultCurrency
	}

	groupedBy := ""
	if req.GroupBySupplier {
		groupedBy = "supplier"
	}

	refs := make(Refs, 0, len(group.quotes))
	for _, q := range group.quotes {
		refs = append(refs, Ref{Type: "quote", ID: q.ID, Number: q.Number})
	}

	po := &PurchaseOrder{
		Document:      entity.NewDocument(currency),
		SupplierID:    group.supplierID,
		GroupedBy:     groupedBy,
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		VATTotal:      totals.VATTotal,
		GrandTotal:    totals.GrandTotal,
		SourceRefs:    refs,
		Lines:         lines,
	}
	po.Comment = req.Comment
	po.CreatedBy = actorID(ctx)
	po.MarkIssued()

	po.Number, err = s.nextNumber(ctx, "LPO")
	if err != nil {
		return nil, err
	}

	renumber := func(ctx context.Context) error {
		n, err := s.nextNumber(ctx, "LPO")
		if err != nil {
			return err
		}
		po.Number = n
		return nil
	}
	err = s.persist(ctx, sink, po.ClearAuditActor, renumber, func(ctx context.Context) error {
		return s.orders.Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}

	po.Warnings = sink.warnings

	logger.Info(ctx, "purchase order derived",
		"lpo_id", po.ID,
		"number", po.Number,
		"supplier_id", po.SupplierID,
		"lines", len(lines),
		"grand_total", po.GrandTotal.String())

	s.recordAudit(ctx, AuditEntry{
		DocumentType:   TypePurchaseOrder,
		DocumentID:     po.ID,
		DocumentNumber: po.Number,
		SourceRefs:     refs,
		Warnings:       sink.warnings,
	})

	return po, nil
}

// buildLPOLine carries one quote line through item resolution, pricing
// and computation. Returns ok=false when the line is skipped.
func (s *Service) buildLPOLine(ctx context.Context, ql *source.QuoteLine, header *source.Quote, sink *warningSink) (Line, bool) {
	lineID := ql.ID

	if !ql.Quantity.IsPositive() {
		sink.add(WarnLineSkipped, "quote line has no quantity", &lineID, nil)
		return Line{}, false
	}
	if !ql.UnitPrice.IsPositive() {
		sink.add(WarnLineSkipped, "quote line has no unit price", &lineID, nil)
		return Line{}, false
	}

	resolvedItem, synthesized, err := s.items.Resolve(ctx, ql.ItemID, ql.Description)
	if err != nil {
		logger.Error(ctx, "item resolution failed, skipping line",
			"quote_line_id", lineID, "error", err)
		sink.add(WarnLineSkipped, "item resolution failed", &lineID,
			map[string]any{"error": err.Error()})
		return Line{}, false
	}
	if synthesized {
		sink.add(WarnPlaceholderItem, "item reference resolved via synthesized placeholder",
			&lineID, map[string]any{"item_code": resolvedItem.Code})
	}

	description := ql.Description
	if description == "" {
		description = resolvedItem.Description
	}

	candidates := []pricing.Candidate{
		{
			Tier:            pricing.TierPurchaseOrderLine,
			DiscountPercent: ql.DiscountPercent,
			DiscountAmount:  ql.DiscountAmount,
			VATPercent:      ql.VATPercent,
			VATAmount:       ql.VATAmount,
		},
	}
	if header != nil {
		candidates = append(candidates, pricing.Candidate{
			Tier:            pricing.TierHeaderDefault,
			DiscountPercent: header.DiscountPercent,
			VATPercent:      header.VATPercent,
		})
	}

	resolved := pricing.Resolve(candidates)

	computed := compute.Compute(compute.Input{
		Quantity:         ql.Quantity,
		UnitPrice:        ql.UnitPrice,
		DiscountPercent:  resolved.DiscountPercent,
		DiscountOverride: resolved.DiscountAmount,
		VATPercent:       resolved.VATPercent,
		VATOverride:      resolved.VATAmount,
	})

	return newLine(0, &lineID, resolvedItem.ID, description, ql.Quantity, ql.UnitPrice, resolved, computed), true
}
