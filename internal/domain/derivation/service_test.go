package derivation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/id"
	"tradecore/internal/core/numerator"
	"tradecore/internal/core/types"
	"tradecore/internal/domain/catalogs/item"
	"tradecore/internal/domain/source"
)

// --- Fakes ---

type fakeReader struct {
	orders     map[id.ID]*source.Order
	orderLines map[id.ID][]source.OrderLine
	quotes     map[id.ID]*source.Quote
	quoteLines map[id.ID][]source.QuoteLine
	deliveries map[id.ID]*source.Delivery
	delLines   map[id.ID][]source.DeliveryLine
	events     map[id.ID][]source.FulfillmentEvent
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		orders:     make(map[id.ID]*source.Order),
		orderLines: make(map[id.ID][]source.OrderLine),
		quotes:     make(map[id.ID]*source.Quote),
		quoteLines: make(map[id.ID][]source.QuoteLine),
		deliveries: make(map[id.ID]*source.Delivery),
		delLines:   make(map[id.ID][]source.DeliveryLine),
		events:     make(map[id.ID][]source.FulfillmentEvent),
	}
}

func (f *fakeReader) Order(ctx context.Context, orderID id.ID) (*source.Order, error) {
	if o, ok := f.orders[orderID]; ok {
		return o, nil
	}
	return nil, apperror.NewNotFound("order", orderID.String())
}

func (f *fakeReader) OrderLines(ctx context.Context, orderID id.ID) ([]source.OrderLine, error) {
	return f.orderLines[orderID], nil
}

func (f *fakeReader) Quote(ctx context.Context, quoteID id.ID) (*source.Quote, error) {
	if q, ok := f.quotes[quoteID]; ok {
		return q, nil
	}
	return nil, apperror.NewNotFound("quote", quoteID.String())
}

func (f *fakeReader) QuoteLines(ctx context.Context, quoteID id.ID) ([]source.QuoteLine, error) {
	return f.quoteLines[quoteID], nil
}

func (f *fakeReader) Delivery(ctx context.Context, deliveryID id.ID) (*source.Delivery, error) {
	if d, ok := f.deliveries[deliveryID]; ok {
		return d, nil
	}
	return nil, apperror.NewNotFound("delivery", deliveryID.String())
}

func (f *fakeReader) DeliveryLines(ctx context.Context, deliveryID id.ID) ([]source.DeliveryLine, error) {
	return f.delLines[deliveryID], nil
}

func (f *fakeReader) FulfillmentEvents(ctx context.Context, orderLineIDs []id.ID) (map[id.ID][]source.FulfillmentEvent, error) {
	out := make(map[id.ID][]source.FulfillmentEvent)
	for _, lid := range orderLineIDs {
		if evs, ok := f.events[lid]; ok {
			out[lid] = evs
		}
	}
	return out, nil
}

type fakeItems struct {
	known        map[id.ID]*item.Item
	placeholders int
}

func newFakeItems() *fakeItems {
	return &fakeItems{known: make(map[id.ID]*item.Item)}
}

func (f *fakeItems) Resolve(ctx context.Context, itemID *id.ID, description string) (*item.Item, bool, error) {
	if itemID != nil && !id.IsNil(*itemID) {
		if it, ok := f.known[*itemID]; ok {
			return it, false, nil
		}
	}
	f.placeholders++
	placeholder := item.New(fmt.Sprintf("AUTO-%04d", f.placeholders), description)
	placeholder.Placeholder = true
	return placeholder, true, nil
}

type fakeInvoiceRepo struct {
	created          []*Invoice
	auditFailures    int // fail this many Creates with an audit-FK violation
	numberCollisions int // fail this many Creates with a unique number violation
}

func (f *fakeInvoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	if f.auditFailures > 0 {
		f.auditFailures--
		return apperror.NewAuditReference("fk_invoices_created_by", nil)
	}
	if f.numberCollisions > 0 {
		f.numberCollisions--
		return apperror.NewDuplicate("invoice", "doc_invoices_number_key", inv.Number)
	}
	f.created = append(f.created, inv)
	return nil
}

func (f *fakeInvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	for _, inv := range f.created {
		if inv.ID == invoiceID {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", invoiceID.String())
}

func (f *fakeInvoiceRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, inv := range f.created {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", number)
}

type fakePORepo struct {
	created []*PurchaseOrder
}

func (f *fakePORepo) Create(ctx context.Context, po *PurchaseOrder) error {
	f.created = append(f.created, po)
	return nil
}

func (f *fakePORepo) GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	for _, po := range f.created {
		if po.ID == poID {
			return po, nil
		}
	}
	return nil, apperror.NewNotFound("purchase order", poID.String())
}

func (f *fakePORepo) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	for _, po := range f.created {
		if po.Number == number {
			return po, nil
		}
	}
	return nil, apperror.NewNotFound("purchase order", number)
}

type fakeNumbers struct {
	counters map[string]int
}

func (f *fakeNumbers) GetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time) (string, error) {
	if f.counters == nil {
		f.counters = make(map[string]int)
	}
	f.counters[cfg.Prefix]++
	return fmt.Sprintf("%s-2026-%05d", cfg.Prefix, f.counters[cfg.Prefix]), nil
}

type fakeTx struct{}

func (fakeTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Fixture ---

type fixture struct {
	reader   *fakeReader
	items    *fakeItems
	invoices *fakeInvoiceRepo
	orders   *fakePORepo
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		reader:   newFakeReader(),
		items:    newFakeItems(),
		invoices: &fakeInvoiceRepo{},
		orders:   &fakePORepo{},
	}
	f.svc = NewService(f.reader, f.items, f.invoices, f.orders, &fakeNumbers{}, fakeTx{}, nil)
	return f
}

func (f *fixture) addItem(description string) id.ID {
	it := item.New("ITM-"+description, description)
	f.items.known[it.ID] = it
	return it.ID
}

func (f *fixture) addOrder(currency string) *source.Order {
	o := &source.Order{ID: id.New(), Number: "SO-001", CustomerID: id.New(), Currency: currency}
	f.reader.orders[o.ID] = o
	return o
}

func (f *fixture) addOrderLine(o *source.Order, itemID *id.ID, qty, price string, mutate func(*source.OrderLine)) *source.OrderLine {
	line := source.OrderLine{
		ID:          id.New(),
		OrderID:     o.ID,
		ItemID:      itemID,
		LineNo:      len(f.reader.orderLines[o.ID]) + 1,
		Description: "line " + qty,
		Quantity:    types.MustMoney(qty),
		UnitPrice:   types.MustMoney(price),
	}
	if mutate != nil {
		mutate(&line)
	}
	f.reader.orderLines[o.ID] = append(f.reader.orderLines[o.ID], line)
	return &f.reader.orderLines[o.ID][len(f.reader.orderLines[o.ID])-1]
}

func pct(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

// --- Invoice derivation ---

func TestDeriveInvoice_FromOrderVirtualLines(t *testing.T) {
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	f.addOrderLine(o, &itemID, "10", "100", func(l *source.OrderLine) {
		l.DiscountPercent = pct("10")
		l.VATPercent = pct("5")
	})

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{OrderID: &o.ID})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	line := inv.Lines[0]
	assert.True(t, line.Gross.Equal(types.MustMoney("1000")))
	assert.True(t, line.Discount.Equal(types.MustMoney("100")))
	assert.True(t, line.Net.Equal(types.MustMoney("900")))
	assert.True(t, line.VAT.Equal(types.MustMoney("45")))
	assert.True(t, line.Total.Equal(types.MustMoney("945")))

	assert.True(t, inv.Subtotal.Equal(types.MustMoney("900")))
	assert.True(t, inv.GrandTotal.Equal(types.MustMoney("945")))
	assert.Equal(t, "INV-2026-00001", inv.Number)
	assert.Equal(t, "USD", inv.Currency)
	require.Len(t, f.invoices.created, 1)
}

func TestDeriveInvoice_PartialDeliveriesNotReoffered(t *testing.T) {
	// Scenario: 10 ordered, delivered 4+6, the first 4 already invoiced.
	// Deriving from the second delivery must carry 6, not 10.
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	ol := f.addOrderLine(o, &itemID, "10", "50", nil)

	d1 := &source.Delivery{ID: id.New(), Number: "DN-1", OrderID: &o.ID}
	d2 := &source.Delivery{ID: id.New(), Number: "DN-2", OrderID: &o.ID}
	f.reader.deliveries[d1.ID] = d1
	f.reader.deliveries[d2.ID] = d2
	f.reader.delLines[d2.ID] = []source.DeliveryLine{{
		ID:                id.New(),
		DeliveryID:        d2.ID,
		OrderLineID:       &ol.ID,
		ItemID:            &itemID,
		DeliveredQuantity: types.MustMoney("6"),
		OrderedQuantity:   types.MustMoney("10"),
	}}

	lineID := ol.ID
	f.reader.events[lineID] = []source.FulfillmentEvent{
		{SourceLineID: &lineID, Kind: source.EventDelivery, Quantity: types.MustMoney("4"), DocumentID: d1.ID},
		{SourceLineID: &lineID, Kind: source.EventDelivery, Quantity: types.MustMoney("6"), DocumentID: d2.ID},
		{SourceLineID: &lineID, Kind: source.EventInvoice, Quantity: types.MustMoney("4"), DocumentID: id.New()},
	}

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{DeliveryID: &d2.ID})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	assert.True(t, inv.Lines[0].Quantity.Equal(types.MustMoney("6")),
		"aggregate of events minus invoiced, not the ordered 10")

	// After this invoice is recorded, nothing remains to invoice.
	f.reader.events[lineID] = append(f.reader.events[lineID], source.FulfillmentEvent{
		SourceLineID: &lineID, Kind: source.EventInvoice,
		Quantity: types.MustMoney("6"), DocumentID: inv.ID,
	})

	_, err = f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{DeliveryID: &d2.ID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoSourceLines, appErr.Code)
	assert.Len(t, f.invoices.created, 1, "nothing further persisted")
}

func TestDeriveInvoice_PlaceholderItemKeepsLine(t *testing.T) {
	f := newFixture()
	o := f.addOrder("USD")
	ghost := id.New() // references an item that does not exist
	f.addOrderLine(o, &ghost, "2", "30", nil)

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{OrderID: &o.ID})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1, "line kept via synthesized placeholder")
	assert.Equal(t, 1, f.items.placeholders)

	var found bool
	for _, w := range inv.Warnings {
		if w.Code == WarnPlaceholderItem {
			found = true
		}
	}
	assert.True(t, found, "placeholder recorded as data-quality warning")
}

func TestDeriveInvoice_NoProcessableLines(t *testing.T) {
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	f.addOrderLine(o, &itemID, "0", "100", nil) // zero quantity

	_, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{OrderID: &o.ID})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoSourceLines, appErr.Code)
	assert.Empty(t, f.invoices.created, "nothing persisted")
}

func TestDeriveInvoice_DeliveryWithoutOrderRef(t *testing.T) {
	f := newFixture()
	d := &source.Delivery{ID: id.New(), Number: "DN-9"}
	f.reader.deliveries[d.ID] = d

	_, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{DeliveryID: &d.ID})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeMissingCrossRef, appErr.Code)
}

func TestDeriveInvoice_SelectedLinesOnly(t *testing.T) {
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	l1 := f.addOrderLine(o, &itemID, "1", "10", nil)
	f.addOrderLine(o, &itemID, "1", "20", nil)

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{
		OrderID:         &o.ID,
		SelectedLineIDs: []id.ID{l1.ID},
	})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	assert.True(t, inv.Lines[0].UnitPrice.Equal(types.MustMoney("10")))
}

func TestDeriveInvoice_QuotePricingBorrowed(t *testing.T) {
	f := newFixture()
	itemID := f.addItem("widget")

	q := &source.Quote{ID: id.New(), Number: "QT-1", SupplierID: id.New(), Currency: "USD"}
	f.reader.quotes[q.ID] = q
	f.reader.quoteLines[q.ID] = []source.QuoteLine{{
		ID: id.New(), QuoteID: q.ID, ItemID: &itemID, LineNo: 1,
		Description:     "widget",
		DiscountPercent: pct("20"),
	}}

	o := f.addOrder("USD")
	o.QuoteID = &q.ID
	f.addOrderLine(o, &itemID, "1", "100", nil) // no pricing of its own

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{OrderID: &o.ID})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	assert.True(t, inv.Lines[0].Discount.Equal(types.MustMoney("20")),
		"discount borrowed from matched quote line")
}

func TestDeriveInvoice_AuditReferenceRetry(t *testing.T) {
	f := newFixture()
	f.invoices.auditFailures = 1
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	f.addOrderLine(o, &itemID, "1", "100", nil)

	ctx := context.Background()
	inv, err := f.svc.DeriveInvoice(ctx, DeriveInvoiceRequest{OrderID: &o.ID})
	require.NoError(t, err, "audit-FK violation retried once with cleared actor")

	assert.Equal(t, "", inv.CreatedBy)
	require.Len(t, f.invoices.created, 1)

	var cleared bool
	for _, w := range inv.Warnings {
		if w.Code == WarnAuditRefCleared {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestDeriveInvoice_OverFulfillmentWarned(t *testing.T) {
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	ol := f.addOrderLine(o, &itemID, "10", "10", nil)

	lineID := ol.ID
	f.reader.events[lineID] = []source.FulfillmentEvent{
		{SourceLineID: &lineID, Kind: source.EventDelivery, Quantity: types.MustMoney("13"), DocumentID: id.New()},
	}

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{OrderID: &o.ID})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 1)
	assert.True(t, inv.Lines[0].Quantity.Equal(types.MustMoney("10")),
		"carried quantity clamped to ordered")

	var clamped bool
	for _, w := range inv.Warnings {
		if w.Code == WarnOverFulfillment {
			clamped = true
		}
	}
	assert.True(t, clamped, "clamp surfaced as reconciliation warning")
}

func TestDeriveInvoice_DuplicateDeliveryLinesShareBalance(t *testing.T) {
	// Two delivery lines reference the same order line (10 ordered,
	// events 5+5 delivered). The invoiceable balance must be drawn once,
	// not once per line.
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	ol := f.addOrderLine(o, &itemID, "10", "10", nil)

	d := &source.Delivery{ID: id.New(), Number: "DN-1", OrderID: &o.ID}
	f.reader.deliveries[d.ID] = d
	for i := 0; i < 2; i++ {
		f.reader.delLines[d.ID] = append(f.reader.delLines[d.ID], source.DeliveryLine{
			ID:                id.New(),
			DeliveryID:        d.ID,
			OrderLineID:       &ol.ID,
			ItemID:            &itemID,
			DeliveredQuantity: types.MustMoney("5"),
			OrderedQuantity:   types.MustMoney("10"),
		})
	}

	lineID := ol.ID
	f.reader.events[lineID] = []source.FulfillmentEvent{
		{SourceLineID: &lineID, Kind: source.EventDelivery, Quantity: types.MustMoney("5"), DocumentID: d.ID},
		{SourceLineID: &lineID, Kind: source.EventDelivery, Quantity: types.MustMoney("5"), DocumentID: d.ID},
	}

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{DeliveryID: &d.ID})
	require.NoError(t, err)

	total := types.Zero()
	for _, l := range inv.Lines {
		total = total.Add(l.Quantity)
	}
	assert.True(t, total.Equal(types.MustMoney("10")),
		"invoiced quantity must not exceed the 10 ordered, got %s", total)
	require.Len(t, inv.Lines, 1, "second line finds its balance consumed")

	var skipped bool
	for _, w := range inv.Warnings {
		if w.Code == WarnLineSkipped {
			skipped = true
		}
	}
	assert.True(t, skipped, "drained duplicate surfaced as skipped line")
}

func TestDeriveInvoice_DuplicateLinesWithoutHistoryCapped(t *testing.T) {
	// Same duplication but before any events are recorded: moved
	// quantities are honored until the ordered quantity is used up.
	f := newFixture()
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	ol := f.addOrderLine(o, &itemID, "10", "10", nil)

	d := &source.Delivery{ID: id.New(), Number: "DN-1", OrderID: &o.ID}
	f.reader.deliveries[d.ID] = d
	for i := 0; i < 2; i++ {
		f.reader.delLines[d.ID] = append(f.reader.delLines[d.ID], source.DeliveryLine{
			ID:                id.New(),
			DeliveryID:        d.ID,
			OrderLineID:       &ol.ID,
			ItemID:            &itemID,
			DeliveredQuantity: types.MustMoney("6"),
			OrderedQuantity:   types.MustMoney("10"),
		})
	}

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{DeliveryID: &d.ID})
	require.NoError(t, err)

	require.Len(t, inv.Lines, 2)
	assert.True(t, inv.Lines[0].Quantity.Equal(types.MustMoney("6")))
	assert.True(t, inv.Lines[1].Quantity.Equal(types.MustMoney("4")),
		"second line limited to the order line's remaining 4")
}

func TestDeriveInvoice_NumberCollisionRegenerated(t *testing.T) {
	// A concurrent writer claims the candidate number between the registry
	// check and the insert; the derivation regenerates once and succeeds.
	f := newFixture()
	f.invoices.numberCollisions = 1
	o := f.addOrder("USD")
	itemID := f.addItem("widget")
	f.addOrderLine(o, &itemID, "1", "100", nil)

	inv, err := f.svc.DeriveInvoice(context.Background(), DeriveInvoiceRequest{OrderID: &o.ID})
	require.NoError(t, err, "unique number violation retried with a fresh number")

	assert.Equal(t, "INV-2026-00002", inv.Number)
	require.Len(t, f.invoices.created, 1)
	assert.Equal(t, "INV-2026-00002", f.invoices.created[0].Number)
}

// --- Purchase order derivation ---

func (f *fixture) addQuote(number string, supplierID id.ID) *source.Quote {
	q := &source.Quote{ID: id.New(), Number: number, SupplierID: supplierID, Currency: "USD"}
	f.reader.quotes[q.ID] = q
	return q
}

func (f *fixture) addQuoteLine(q *source.Quote, itemID *id.ID, qty, price string) *source.QuoteLine {
	line := source.QuoteLine{
		ID: id.New(), QuoteID: q.ID, ItemID: itemID,
		LineNo:      len(f.reader.quoteLines[q.ID]) + 1,
		Description: "quoted item",
		Quantity:    types.MustMoney(qty),
		UnitPrice:   types.MustMoney(price),
	}
	f.reader.quoteLines[q.ID] = append(f.reader.quoteLines[q.ID], line)
	return &f.reader.quoteLines[q.ID][len(f.reader.quoteLines[q.ID])-1]
}

func TestDerivePurchaseOrders_GroupBySupplier(t *testing.T) {
	f := newFixture()
	itemID := f.addItem("widget")

	s1 := id.New()
	s2 := id.New()
	q1 := f.addQuote("QT-1", s1)
	q2 := f.addQuote("QT-2", s1)
	q3 := f.addQuote("QT-3", s2)
	f.addQuoteLine(q1, &itemID, "5", "10")
	f.addQuoteLine(q2, &itemID, "3", "20")
	f.addQuoteLine(q3, &itemID, "1", "7")

	pos, err := f.svc.DerivePurchaseOrders(context.Background(), DeriveLPORequest{
		QuoteIDs:        []id.ID{q1.ID, q2.ID, q3.ID},
		GroupBySupplier: true,
	})
	require.NoError(t, err)

	require.Len(t, pos, 2, "exactly one document per supplier")

	assert.Equal(t, s1, pos[0].SupplierID)
	assert.Len(t, pos[0].Lines, 2, "S1 aggregates both quotes' lines")
	assert.True(t, pos[0].Subtotal.Equal(types.MustMoney("110"))) // 5*10 + 3*20
	assert.Len(t, pos[0].SourceRefs, 2)
	assert.Equal(t, "supplier", pos[0].GroupedBy)

	assert.Equal(t, s2, pos[1].SupplierID)
	assert.Len(t, pos[1].Lines, 1)
	assert.True(t, pos[1].Subtotal.Equal(types.MustMoney("7")))

	assert.Equal(t, "LPO-2026-00001", pos[0].Number)
	assert.Equal(t, "LPO-2026-00002", pos[1].Number)
	assert.Len(t, f.orders.created, 2)
}

func TestDerivePurchaseOrders_WarningsStayWithTheirDocument(t *testing.T) {
	// A placeholder synthesized for S1's line must not appear on S2's
	// document.
	f := newFixture()
	itemID := f.addItem("widget")

	s1 := id.New()
	s2 := id.New()
	q1 := f.addQuote("QT-1", s1)
	q2 := f.addQuote("QT-2", s2)
	ghost := id.New()
	f.addQuoteLine(q1, &ghost, "2", "10") // unknown item, placeholder raised
	f.addQuoteLine(q2, &itemID, "3", "20")

	pos, err := f.svc.DerivePurchaseOrders(context.Background(), DeriveLPORequest{
		QuoteIDs:        []id.ID{q1.ID, q2.ID},
		GroupBySupplier: true,
	})
	require.NoError(t, err)
	require.Len(t, pos, 2)

	var placeholderOnFirst bool
	for _, w := range pos[0].Warnings {
		if w.Code == WarnPlaceholderItem {
			placeholderOnFirst = true
		}
	}
	assert.True(t, placeholderOnFirst, "S1 carries its own placeholder warning")
	assert.Empty(t, pos[1].Warnings, "S2 untouched by S1's data-quality events")
}

func TestDerivePurchaseOrders_SingleDocumentWithoutGrouping(t *testing.T) {
	f := newFixture()
	itemID := f.addItem("widget")

	q1 := f.addQuote("QT-1", id.New())
	q2 := f.addQuote("QT-2", id.New())
	f.addQuoteLine(q1, &itemID, "5", "10")
	f.addQuoteLine(q2, &itemID, "3", "20")

	pos, err := f.svc.DerivePurchaseOrders(context.Background(), DeriveLPORequest{
		QuoteIDs: []id.ID{q1.ID, q2.ID},
	})
	require.NoError(t, err)

	require.Len(t, pos, 1)
	assert.Equal(t, q1.SupplierID, pos[0].SupplierID, "first quote's supplier owns the document")
	assert.Len(t, pos[0].Lines, 2)
	assert.Equal(t, "", pos[0].GroupedBy)
}

func TestDerivePurchaseOrders_EmptyRequest(t *testing.T) {
	f := newFixture()

	_, err := f.svc.DerivePurchaseOrders(context.Background(), DeriveLPORequest{})

	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestDerivePurchaseOrders_AllLinesDegrade(t *testing.T) {
	f := newFixture()
	itemID := f.addItem("widget")
	q := f.addQuote("QT-1", id.New())
	f.addQuoteLine(q, &itemID, "0", "10") // no quantity

	_, err := f.svc.DerivePurchaseOrders(context.Background(), DeriveLPORequest{
		QuoteIDs: []id.ID{q.ID},
	})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoSourceLines, appErr.Code)
	assert.Empty(t, f.orders.created)
}
