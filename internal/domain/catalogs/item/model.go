// Package item provides the Item master-data catalog.
// Items supply descriptions and codes for derived document lines and can
// be synthesized as minimal placeholders when a source line carries an
// unresolvable reference.
package item

import (
	"context"
	"strings"

	"tradecore/internal/core/apperror"
	"tradecore/internal/core/entity"
)

// Item represents a product or service in master data.
type Item struct {
	entity.BaseCatalog

	// Code is a human-readable identifier, unique within the catalog.
	Code string `db:"code" json:"code"`

	Description  string `db:"description" json:"description"`
	Barcode      string `db:"barcode" json:"barcode,omitempty"`
	SupplierCode string `db:"supplier_code" json:"supplierCode,omitempty"`

	// Placeholder marks records synthesized during derivation for lines
	// whose item reference was missing or invalid. They carry just enough
	// data for the line not to be dropped and are expected to be curated
	// later.
	Placeholder bool `db:"placeholder" json:"placeholder"`
}

// New creates a new Item.
func New(code, description string) *Item {
	return &Item{
		BaseCatalog: entity.NewBaseCatalog(),
		Code:        code,
		Description: description,
	}
}

// Validate implements entity.Validatable.
func (i *Item) Validate(ctx context.Context) error {
	if strings.TrimSpace(i.Description) == "" {
		return apperror.NewValidation("description is required").
			WithDetail("field", "description")
	}
	if strings.TrimSpace(i.Code) == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	return nil
}
