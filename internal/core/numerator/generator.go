// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"time"
)

// Generator produces unique human-readable document numbers.
// This is the domain contract - implementations live in pkg/numerator.
//
// Uniqueness is per document type (prefix), not global: invoices and
// purchase orders are numbered by independent, possibly concurrent,
// derivation calls. Implementations verify each candidate against the
// registry of issued numbers and retry on collision a bounded
// number of times.
type Generator interface {
	// GetNextNumber generates the next unused document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., INV-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Registry answers whether a candidate number is already in use for a
// document type. Backed by the derived-document tables.
type Registry interface {
	Exists(ctx context.Context, prefix, number string) (bool, error)
}
