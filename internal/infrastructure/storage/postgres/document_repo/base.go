// Package document_repo provides PostgreSQL repositories for derived
// commercial documents (invoices, purchase orders). A document is a
// header row plus line rows; Create writes both inside one transaction
// so no partial document is ever observable.
package document_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradecore/internal/core/id"
	"tradecore/internal/domain/derivation"
	"tradecore/internal/infrastructure/storage/postgres"
)

// lineColumns is the column order used for bulk line inserts. The first
// column is the owning document's foreign key.
var lineColumns = []string{
	"document_id", "line_id", "line_no", "source_line_id", "item_id",
	"description", "quantity", "unit_price",
	"discount_percent", "vat_percent",
	"gross", "discount", "net", "vat", "total",
}

// baseDocumentRepo holds what the two document repositories share.
type baseDocumentRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
}

func newBaseDocumentRepo(txManager *postgres.TxManager) baseDocumentRepo {
	return baseDocumentRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
	}
}

// Builder returns a new squirrel builder.
func (r *baseDocumentRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// insertHeader inserts the document header row. The entity's db-tagged
// fields are filtered to the given columns; source refs are attached as
// JSONB and empty audit actors become NULL so the optional FK is not
// violated by the empty string.
func (r *baseDocumentRepo) insertHeader(ctx context.Context, table string, doc any, cols []string, refs derivation.Refs) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filtered := make(map[string]any, len(cols)+1)
	for _, col := range cols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	for _, col := range []string{"created_by", "updated_by"} {
		if v, ok := filtered[col].(string); ok && v == "" {
			filtered[col] = nil
		}
	}

	refsJSON, err := derivation.MarshalRefs(refs)
	if err != nil {
		return fmt.Errorf("marshal source refs: %w", err)
	}
	filtered["source_refs"] = refsJSON

	sql, args, err := r.Builder().Insert(table).SetMap(filtered).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, postgres.ClassifyError(err, table))
	}
	return nil
}

// insertLines bulk-inserts the line rows via the COPY protocol.
func (r *baseDocumentRepo) insertLines(ctx context.Context, table string, documentID id.ID, lines []derivation.Line) error {
	rows := make([][]any, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []any{
			documentID, l.LineID, l.LineNo, l.SourceLineID, l.ItemID,
			l.Description, l.Quantity, l.UnitPrice,
			l.DiscountPercent, l.VATPercent,
			l.Gross, l.Discount, l.Net, l.VAT, l.Total,
		})
	}

	if _, err := r.inserter.CopyFromSlice(ctx, table, lineColumns, rows); err != nil {
		return fmt.Errorf("insert %s: %w", table, postgres.ClassifyError(err, table))
	}
	return nil
}

// loadLines reads a document's lines in line order.
func (r *baseDocumentRepo) loadLines(ctx context.Context, table string, documentID id.ID) ([]derivation.Line, error) {
	sql, args, err := r.Builder().
		Select("line_id", "line_no", "source_line_id", "item_id",
			"description", "quantity", "unit_price",
			"discount_percent", "vat_percent",
			"gross", "discount", "net", "vat", "total").
		From(table).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var lines []derivation.Line
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return lines, nil
}

// loadRefs reads a header's source_refs JSONB column.
func (r *baseDocumentRepo) loadRefs(ctx context.Context, table string, documentID id.ID) (derivation.Refs, error) {
	var raw json.RawMessage
	querier := r.txManager.GetQuerier(ctx)
	row := querier.QueryRow(ctx, fmt.Sprintf("SELECT source_refs FROM %s WHERE id = $1", table), documentID)
	if err := row.Scan(&raw); err != nil {
		return nil, fmt.Errorf("select source refs: %w", err)
	}

	var refs derivation.Refs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, fmt.Errorf("unmarshal source refs: %w", err)
		}
	}
	return refs, nil
}
