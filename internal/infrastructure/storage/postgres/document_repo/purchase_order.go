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
	purchaseOrderTable     = "doc_purchase_orders"
	purchaseOrderLineTable = "doc_purchase_order_lines"
)

// Compile-time check that PurchaseOrderRepo implements the domain contract.
var _ derivation.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo persists derived supplier purchase orders.
type PurchaseOrderRepo struct {
	baseDocumentRepo
	columns []string
}

// NewPurchaseOrderRepo creates a new purchase-order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		baseDocumentRepo: newBaseDocumentRepo(txManager),
		columns:          postgres.ExtractDBColumns[derivation.PurchaseOrder](),
	}
}

// Create inserts the purchase-order header and its lines atomically.
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *derivation.PurchaseOrder) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insertHeader(ctx, purchaseOrderTable, po, r.columns, po.SourceRefs); err != nil {
			return err
		}
		return r.insertLines(ctx, purchaseOrderLineTable, po.ID, po.Lines)
	})
}

// GetByID loads a purchase order with its lines and source references.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, poID id.ID) (*derivation.PurchaseOrder, error) {
	return r.get(ctx, squirrel.Eq{"id": poID})
}

// GetByNumber loads a purchase order by its document number.
func (r *PurchaseOrderRepo) GetByNumber(ctx context.Context, number string) (*derivation.PurchaseOrder, error) {
	return r.get(ctx, squirrel.Eq{"number": number})
}

func (r *PurchaseOrderRepo) get(ctx context.Context, pred squirrel.Eq) (*derivation.PurchaseOrder, error) {
	sql, args, err := r.Builder().
		Select(r.columns...).
		From(purchaseOrderTable).
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var po derivation.PurchaseOrder
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &po, sql, args...); err != nil {
		return nil, postgres.ClassifyError(err, "purchase order")
	}

	if po.SourceRefs, err = r.loadRefs(ctx, purchaseOrderTable, po.ID); err != nil {
		return nil, err
	}
	if po.Lines, err = r.loadLines(ctx, purchaseOrderLineTable, po.ID); err != nil {
		return nil, err
	}
	return &po, nil
}
