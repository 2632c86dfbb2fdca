package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradecore/internal/core/id"
	"tradecore/internal/domain/derivation"
	"tradecore/internal/infrastructure/storage/postgres"
)

const (
	invoiceTable     = "doc_invoices"
	invoiceLineTable = "doc_invoice_lines"
)

// Compile-time check that InvoiceRepo implements the domain contract.
var _ derivation.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo persists derived invoices.
type InvoiceRepo struct {
	baseDocumentRepo
	columns []string
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		baseDocumentRepo: newBaseDocumentRepo(txManager),
		columns:          postgres.ExtractDBColumns[derivation.Invoice](),
	}
}

// Create inserts the invoice header and its lines atomically. A nested
// call reuses the caller's transaction.
func (r *InvoiceRepo) Create(ctx context.Context, inv *derivation.Invoice) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertHeader(ctx, invoiceTable, inv, r.columns, inv.SourceRefs); err != nil {
			return err
		}
		return r.insertLines(ctx, invoiceLineTable, inv.ID, inv.Lines)
	})
}

// GetByID loads an invoice with its lines and source references.
func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*derivation.Invoice, error) {
	return r.get(ctx, squirrel.Eq{"id": invoiceID})
}

// GetByNumber loads an invoice by its document number.
func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*derivation.Invoice, error) {
	return r.get(ctx, squirrel.Eq{"number": number})
}

func (r *InvoiceRepo) get(ctx context.Context, pred squirrel.Eq) (*derivation.Invoice, error) {
	var inv derivation.Invoice
	if err := r.getHeader(ctx, &inv, pred); err != nil {
		return nil, err
	}
	return r.hydrate(ctx, &inv)
}

func (r *InvoiceRepo) getHeader(ctx context.Context, dst *derivation.Invoice, pred squirrel.Eq) error {
	sql, args, err := r.Builder().
		Select(r.columns...).
		From(invoiceTable).
		Where(pred).
		ToSql()
	if err != nil {
		return fmt.Errorf("build select: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, dst, sql, args...); err != nil {
		return postgres.ClassifyError(err, "invoice")
	}
	return nil
}

func (r *InvoiceRepo) hydrate(ctx context.Context, inv *derivation.Invoice) (*derivation.Invoice, error) {
	var err error
	if inv.SourceRefs, err = r.loadRefs(ctx, invoiceTable, inv.ID); err != nil {
		return nil, err
	}
	if inv.Lines, err = r.loadLines(ctx, invoiceLineTable, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}
