// Package catalog_repo provides PostgreSQL repositories for master-data
// catalogs.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradecore/internal/core/id"
	"tradecore/internal/domain/catalogs/item"
	"tradecore/internal/infrastructure/storage/postgres"
)

const itemTable = "cat_items"

// Compile-time check that ItemRepo implements the domain contract.
var _ item.Repository = (*ItemRepo)(nil)

// ItemRepo persists the item catalog, including placeholder records
// synthesized during derivation.
type ItemRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewItemRepo creates a new item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[item.Item](),
	}
}

// Builder returns a new squirrel builder.
func (r *ItemRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts a new item.
func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	data := postgres.StructToMap(it)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filtered := make(map[string]any, len(r.columns))
	for _, col := range r.columns {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	sql, args, err := r.Builder().Insert(itemTable).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", itemTable, postgres.ClassifyError(err, "item"))
	}
	return nil
}

// GetByID loads an item by primary key.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	return r.get(ctx, squirrel.Eq{"id": itemID})
}

// GetByCode loads an item by its catalog code.
func (r *ItemRepo) GetByCode(ctx context.Context, code string) (*item.Item, error) {
	return r.get(ctx, squirrel.Eq{"code": code})
}

// ExistsByCode reports whether an item with the given code exists.
func (r *ItemRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	querier := r.txManager.GetQuerier(ctx)
	row := querier.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE code = $1)", itemTable), code)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check item existence: %w", err)
	}
	return exists, nil
}

func (r *ItemRepo) get(ctx context.Context, pred squirrel.Eq) (*item.Item, error) {
	sql, args, err := r.Builder().
		Select(r.columns...).
		From(itemTable).
		Where(pred).
		Where(squirrel.Eq{"deletion_mark": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var it item.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &it, sql, args...); err != nil {
		return nil, postgres.ClassifyError(err, "item")
	}
	return &it, nil
}
