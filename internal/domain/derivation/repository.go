package derivation

import (
	"context"

	"tradecore/internal/core/id"
)

// InvoiceRepository persists derived invoices. Create must write the
// header and its lines as one unit: if line insertion fails, the header
// insertion is rolled back and no partial document is observable.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
}

// PurchaseOrderRepository persists derived purchase orders with the same
// atomicity contract as InvoiceRepository.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error)
	GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error)
}

// AuditRecorder records the derivation audit trail: source references,
// fallback tiers used, clamp warnings, placeholder items created.
// Recording is best-effort and never fails a derivation.
type AuditRecorder interface {
	RecordDerivation(ctx context.Context, entry AuditEntry) error
}

// AuditEntry summarizes one derivation for the audit trail.
type AuditEntry struct {
	DocumentType   DocumentType
	DocumentID     id.ID
	DocumentNumber string
	SourceRefs     Refs
	Warnings       []Warning
}
