package pricing

import (
	"strings"

	"tradecore/internal/domain/source"
)

// MatchMethod records how an order line was matched to a quote line when
// no direct foreign key exists. The chain degrades deliberately: source
// data is frequently incomplete and the derivation must always find some
// pricing rather than fail. Methods from MatchByLineNumber down are
// low-confidence and surfaced as data-quality warnings.
type MatchMethod string

const (
	MatchByItemID               MatchMethod = "item_id"
	MatchByDescription          MatchMethod = "description_exact"
	MatchByDescriptionSubstring MatchMethod = "description_substring"
	MatchByLineNumber           MatchMethod = "line_number"
	MatchByPosition             MatchMethod = "position"
	MatchFirstAvailable         MatchMethod = "first_available"
	MatchNone                   MatchMethod = "none"
)

// LowConfidence reports whether the method is a weak fallback that
// should be recorded as a data-quality event.
func (m MatchMethod) LowConfidence() bool {
	switch m {
	case MatchByLineNumber, MatchByPosition, MatchFirstAvailable:
		return true
	}
	return false
}

// MatchQuoteLine finds the quote line corresponding to an order line.
// position is the zero-based index of the order line within its
// document, used for the positional fallback. Returns nil and MatchNone
// when the quote has no lines at all.
func MatchQuoteLine(line source.OrderLine, position int, quoteLines []source.QuoteLine) (*source.QuoteLine, MatchMethod) {
	if len(quoteLines) == 0 {
		return nil, MatchNone
	}

	// 1. Exact item-identifier match.
	if line.ItemID != nil {
		for i := range quoteLines {
			if quoteLines[i].ItemID != nil && *quoteLines[i].ItemID == *line.ItemID {
				return &quoteLines[i], MatchByItemID
			}
		}
	}

	// 2. Normalized-description exact match.
	norm := NormalizeDescription(line.Description)
	if norm != "" {
		for i := range quoteLines {
			if NormalizeDescription(quoteLines[i].Description) == norm {
				return &quoteLines[i], MatchByDescription
			}
		}

		// 3. Normalized-description substring match, either direction.
		for i := range quoteLines {
			qn := NormalizeDescription(quoteLines[i].Description)
			if qn == "" {
				continue
			}
			if strings.Contains(qn, norm) || strings.Contains(norm, qn) {
				return &quoteLines[i], MatchByDescriptionSubstring
			}
		}
	}

	// 4. Matching line number.
	if line.LineNo > 0 {
		for i := range quoteLines {
			if quoteLines[i].LineNo == line.LineNo {
				return &quoteLines[i], MatchByLineNumber
			}
		}
	}

	// 5. Positional index fallback.
	if position >= 0 && position < len(quoteLines) {
		return &quoteLines[position], MatchByPosition
	}

	// 6. First available.
	return &quoteLines[0], MatchFirstAvailable
}

// NormalizeDescription lowercases, strips punctuation and collapses
// whitespace so descriptions entered by different users still compare.
func NormalizeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r >= 0x80:
			// Keep non-ASCII letters as-is; upstream data is multilingual.
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}
