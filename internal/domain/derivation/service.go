package derivation

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"tradecore/internal/core/apperror"
	appctx "tradecore/internal/core/context"
	"tradecore/internal/core/id"
	"tradecore/internal/core/numerator"
	"tradecore/internal/core/tx"
	"tradecore/internal/domain/catalogs/item"
	"tradecore/internal/domain/source"
	"tradecore/pkg/logger"
)

var tracer = otel.Tracer("tradecore/derivation")

// defaultCurrency is assumed when no source document carries one.
// Conversion is out of scope; rates are 1:1.
const defaultCurrency = "USD"

// ItemResolver resolves or synthesizes master-data items for lines.
// Implemented by item.Service.
type ItemResolver interface {
	Resolve(ctx context.Context, itemID *id.ID, description string) (*item.Item, bool, error)
}

// Service is the document derivation orchestrator. It selects source
// lines, reconciles quantities against the fulfillment ledger, resolves
// pricing, computes line financials and persists the assembled document
// atomically under a fresh unique number.
type Service struct {
	sources source.Reader
	items   ItemResolver

	invoices InvoiceRepository
	orders   PurchaseOrderRepository

	numbers   numerator.Generator
	txManager tx.Manager

	// audit is optional; nil disables the audit trail.
	audit AuditRecorder
}

// NewService creates a new derivation service.
func NewService(
	sources source.Reader,
	items ItemResolver,
	invoices InvoiceRepository,
	orders PurchaseOrderRepository,
	numbers numerator.Generator,
	txManager tx.Manager,
	audit AuditRecorder,
) *Service {
	return &Service{
		sources:   sources,
		items:     items,
		invoices:  invoices,
		orders:    orders,
		numbers:   numbers,
		txManager: txManager,
		audit:     audit,
	}
}

// nextNumber requests a unique document number for the given prefix.
func (s *Service) nextNumber(ctx context.Context, prefix string) (string, error) {
	return s.numbers.GetNextNumber(ctx, numerator.DefaultConfig(prefix), time.Now())
}

// persist runs fn inside a transaction, retrying exactly once per
// transient classification: with the audit actor cleared when the
// classified optional created_by reference is stale, or with a freshly
// generated number when another writer claimed the candidate between
// the registry check and the insert. Any other failure rolls back and
// surfaces; no partial document remains either way.
func (s *Service) persist(ctx context.Context, sink *warningSink, clearActor func(), renumber func(ctx context.Context) error, fn func(ctx context.Context) error) error {
	err := s.txManager.RunInTransaction(ctx, fn)
	if err == nil {
		return nil
	}

	switch {
	case apperror.IsAuditReference(err):
		logger.Warn(ctx, "audit reference rejected, retrying with cleared actor", "error", err)
		sink.add(WarnAuditRefCleared,
			"created_by reference did not exist; document persisted without actor", nil, nil)
		clearActor()
		return s.txManager.RunInTransaction(ctx, fn)

	case isNumberCollision(err) && renumber != nil:
		logger.Warn(ctx, "document number claimed concurrently, regenerating", "error", err)
		if rerr := renumber(ctx); rerr != nil {
			return rerr
		}
		return s.txManager.RunInTransaction(ctx, fn)
	}

	return err
}

// isNumberCollision reports whether a persistence failure is a unique
// violation on the document number column.
func isNumberCollision(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeDuplicate {
		return false
	}
	field, _ := appErr.Details["field"].(string)
	return strings.Contains(strings.ToLower(field), "number")
}

// recordAudit writes the derivation audit entry. Best-effort: failures
// are logged, never surfaced.
func (s *Service) recordAudit(ctx context.Context, entry AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordDerivation(ctx, entry); err != nil {
		logger.Error(ctx, "derivation audit record failed",
			"document_type", entry.DocumentType,
			"document_id", entry.DocumentID,
			"error", err)
	}
}

// actorID returns the acting user's ID from context, empty for
// anonymous/system derivations.
func actorID(ctx context.Context) string {
	return appctx.GetActorID(ctx)
}

// selected builds a set from the optional line restriction; nil means
// all lines.
func selected(lineIDs []id.ID) map[id.ID]bool {
	if len(lineIDs) == 0 {
		return nil
	}
	set := make(map[id.ID]bool, len(lineIDs))
	for _, lid := range lineIDs {
		set[lid] = true
	}
	return set
}

// finalizeTotals folds lines into header totals, taking the recovery
// path when any line is internally inconsistent, and enforces the
// zero-value guard.
func finalizeTotals(ctx context.Context, lines []Line, sink *warningSink) (Totals, error) {
	totals := SumLines(lines)

	consistent := true
	for _, l := range lines {
		c := computedOf(l)
		if !c.Consistent() {
			consistent = false
			break
		}
	}
	if !consistent {
		logger.Warn(ctx, "line computations inconsistent, recomputing subtotal from line totals")
		sink.add(WarnTotalsRecovered,
			"subtotal recomputed from line totals after inconsistent line math", nil, nil)
		totals = recoverTotals(lines)
	}

	if !totals.Subtotal.IsPositive() {
		return totals, apperror.NewZeroSubtotal(totals.Subtotal.String())
	}
	return totals, nil
}
