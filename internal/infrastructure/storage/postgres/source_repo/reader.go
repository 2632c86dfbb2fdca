// Package source_repo provides read-only PostgreSQL access to the
// upstream source documents the derivation engine consumes.
package source_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradecore/internal/core/id"
	"tradecore/internal/domain/source"
	"tradecore/internal/infrastructure/storage/postgres"
)

const (
	orderTable        = "src_orders"
	orderLineTable    = "src_order_lines"
	quoteTable        = "src_quotes"
	quoteLineTable    = "src_quote_lines"
	deliveryTable     = "src_deliveries"
	deliveryLineTable = "src_delivery_lines"
)

// Compile-time check that Reader implements source.Reader.
var _ source.Reader = (*Reader)(nil)

// Reader loads source documents and the fulfillment ledger. It never
// writes: source documents are owned by upstream collaborators.
type Reader struct {
	txManager *postgres.TxManager
}

// NewReader creates a new source reader.
func NewReader(txManager *postgres.TxManager) *Reader {
	return &Reader{txManager: txManager}
}

// Builder returns a new squirrel builder.
func (r *Reader) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Order loads a sales-order header.
func (r *Reader) Order(ctx context.Context, orderID id.ID) (*source.Order, error) {
	var o source.Order
	if err := r.getOne(ctx, &o, orderTable,
		[]string{"id", "number", "customer_id", "quote_id", "currency", "discount_percent", "vat_percent"},
		squirrel.Eq{"id": orderID}, "order"); err != nil {
		return nil, err
	}
	return &o, nil
}

// OrderLines loads the lines of a sales order in line order.
func (r *Reader) OrderLines(ctx context.Context, orderID id.ID) ([]source.OrderLine, error) {
	var lines []source.OrderLine
	err := r.selectMany(ctx, &lines, orderLineTable,
		[]string{"id", "order_id", "item_id", "line_no", "description",
			"quantity", "unit_price",
			"discount_percent", "discount_amount", "vat_percent", "vat_amount"},
		squirrel.Eq{"order_id": orderID})
	return lines, err
}

// Quote loads a quotation header.
func (r *Reader) Quote(ctx context.Context, quoteID id.ID) (*source.Quote, error) {
	var q source.Quote
	if err := r.getOne(ctx, &q, quoteTable,
		[]string{"id", "number", "supplier_id", "currency", "discount_percent", "vat_percent"},
		squirrel.Eq{"id": quoteID}, "quote"); err != nil {
		return nil, err
	}
	return &q, nil
}

// QuoteLines loads the lines of a quotation in line order.
func (r *Reader) QuoteLines(ctx context.Context, quoteID id.ID) ([]source.QuoteLine, error) {
	var lines []source.QuoteLine
	err := r.selectMany(ctx, &lines, quoteLineTable,
		[]string{"id", "quote_id", "item_id", "line_no", "description",
			"quantity", "unit_price",
			"discount_percent", "discount_amount", "vat_percent", "vat_amount"},
		squirrel.Eq{"quote_id": quoteID})
	return lines, err
}

// Delivery loads a delivery-note header.
func (r *Reader) Delivery(ctx context.Context, deliveryID id.ID) (*source.Delivery, error) {
	var d source.Delivery
	if err := r.getOne(ctx, &d, deliveryTable,
		[]string{"id", "number", "order_id", "currency"},
		squirrel.Eq{"id": deliveryID}, "delivery"); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeliveryLines loads the lines of a delivery note.
func (r *Reader) DeliveryLines(ctx context.Context, deliveryID id.ID) ([]source.DeliveryLine, error) {
	sql, args, err := r.Builder().
		Select("id", "delivery_id", "order_line_id", "item_id", "description",
			"delivered_quantity", "picked_quantity", "ordered_quantity", "unit_price",
			"discount_percent", "discount_amount", "vat_percent", "vat_amount").
		From(deliveryLineTable).
		Where(squirrel.Eq{"delivery_id": deliveryID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var lines []source.DeliveryLine
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", deliveryLineTable, err)
	}
	return lines, nil
}

// fulfillmentEventsSQL unions the two fulfillment dimensions recorded
// against order lines: quantity moved by delivery notes and quantity
// bound by non-cancelled derived invoices.
const fulfillmentEventsSQL = `
	SELECT dl.order_line_id AS source_line_id,
	       'delivery'::text AS kind,
	       CASE WHEN dl.delivered_quantity > 0
	            THEN dl.delivered_quantity
	            ELSE dl.picked_quantity END AS quantity,
	       d.id AS document_id,
	       d.number AS document_number,
	       d.created_at AS occurred_at
	FROM src_delivery_lines dl
	JOIN src_deliveries d ON d.id = dl.delivery_id
	WHERE dl.order_line_id = ANY($1)

	UNION ALL

	SELECT il.source_line_id,
	       'invoice'::text,
	       il.quantity,
	       i.id,
	       i.number,
	       i.created_at
	FROM doc_invoice_lines il
	JOIN doc_invoices i ON i.id = il.document_id
	WHERE il.source_line_id = ANY($1)
	  AND i.status <> 'cancelled'

	ORDER BY occurred_at
`

// FulfillmentEvents loads all recorded fulfillment events for the given
// order lines, keyed by line.
func (r *Reader) FulfillmentEvents(ctx context.Context, orderLineIDs []id.ID) (map[id.ID][]source.FulfillmentEvent, error) {
	out := make(map[id.ID][]source.FulfillmentEvent, len(orderLineIDs))
	if len(orderLineIDs) == 0 {
		return out, nil
	}

	var events []source.FulfillmentEvent
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &events, fulfillmentEventsSQL, orderLineIDs); err != nil {
		return nil, fmt.Errorf("select fulfillment events: %w", err)
	}

	for _, ev := range events {
		if ev.SourceLineID == nil {
			continue
		}
		out[*ev.SourceLineID] = append(out[*ev.SourceLineID], ev)
	}
	return out, nil
}

func (r *Reader) getOne(ctx context.Context, dst any, table string, cols []string, pred squirrel.Eq, entity string) error {
	sql, args, err := r.Builder().
		Select(cols...).
		From(table).
		Where(pred).
		ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, dst, sql, args...); err != nil {
		return postgres.ClassifyError(err, entity)
	}
	return nil
}

func (r *Reader) selectMany(ctx context.Context, dst any, table string, cols []string, pred squirrel.Eq) error {
	sql, args, err := r.Builder().
		Select(cols...).
		From(table).
		Where(pred).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, dst, sql, args...); err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}
