package derivation

import (
	"tradecore/internal/core/id"
)

// Warning codes for non-fatal data-quality events collected during a
// derivation. They are logged and written to the audit trail but never
// abort the derivation.
const (
	WarnPlaceholderItem   = "PLACEHOLDER_ITEM"
	WarnLowConfidenceTier = "LOW_CONFIDENCE_PRICING"
	WarnOverFulfillment   = "OVER_FULFILLMENT_CLAMPED"
	WarnLineSkipped       = "LINE_SKIPPED"
	WarnTotalsRecovered   = "TOTALS_RECOVERED"
	WarnAuditRefCleared   = "AUDIT_REFERENCE_CLEARED"
)

// Warning is a data-quality event tied to a derivation, optionally to a
// specific source line.
type Warning struct {
	Code         string         `json:"code"`
	Message      string         `json:"message"`
	SourceLineID *id.ID         `json:"sourceLineId,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// warningSink accumulates warnings during a derivation pass.
type warningSink struct {
	warnings []Warning
}

func (s *warningSink) add(code, message string, sourceLineID *id.ID, details map[string]any) {
	s.warnings = append(s.warnings, Warning{
		Code:         code,
		Message:      message,
		SourceLineID: sourceLineID,
		Details:      details,
	})
}
