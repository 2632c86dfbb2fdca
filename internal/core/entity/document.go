package entity

import (
	"context"
	"time"

	"tradecore/internal/core/apperror"
)

// Status represents the lifecycle state of a derived document.
// A derived document is created once and never silently overwritten;
// amendments are explicit, separately numbered documents.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusCancelled Status = "cancelled"
)

// Document is the base type for derived commercial documents
// (Invoice, PurchaseOrder).
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Status is the lifecycle state
	Status Status `db:"status" json:"status"`

	// Currency is the ISO currency code. Conversion is out of scope;
	// a 1:1 rate is assumed throughout.
	Currency string `db:"currency" json:"currency"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument(currency string) Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       StatusDraft,
		Currency:     currency,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	if d.Currency == "" {
		return apperror.NewValidation("currency is required").
			WithDetail("field", "currency")
	}

	return nil
}

// CanModify checks if document can be modified.
func (d *Document) CanModify() error {
	if d.Status == StatusIssued {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Cannot modify an issued document. Create an amendment instead.",
		).WithDetail("document_id", d.ID.String())
	}
	return nil
}

// MarkIssued transitions the document to issued state.
func (d *Document) MarkIssued() {
	d.Status = StatusIssued
	d.Touch()
}
