package document_repo

import (
	"context"
	"fmt"

	"tradecore/internal/core/numerator"
	"tradecore/internal/infrastructure/storage/postgres"
)

// Compile-time check that NumberRegistry implements numerator.Registry.
var _ numerator.Registry = (*NumberRegistry)(nil)

// NumberRegistry answers number-uniqueness checks against the derived
// document tables. Each prefix maps to the table that owns it.
type NumberRegistry struct {
	txManager *postgres.TxManager
	tables    map[string]string
}

// NewNumberRegistry creates a registry covering both document types.
func NewNumberRegistry(txManager *postgres.TxManager) *NumberRegistry {
	return &NumberRegistry{
		txManager: txManager,
		tables: map[string]string{
			"INV": invoiceTable,
			"LPO": purchaseOrderTable,
		},
	}
}

// Exists reports whether a candidate number is already issued.
// An unknown prefix is a wiring mistake, not a collision.
func (r *NumberRegistry) Exists(ctx context.Context, prefix, number string) (bool, error) {
	table, ok := r.tables[prefix]
	if !ok {
		return false, fmt.Errorf("no document table registered for prefix %q", prefix)
	}

	var exists bool
	querier := r.txManager.GetQuerier(ctx)
	row := querier.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE number = $1)", table), number)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check number existence: %w", err)
	}
	return exists, nil
}
