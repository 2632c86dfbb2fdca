package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradecore/internal/core/id"
	"tradecore/internal/domain/source"
)

func quoteLine(itemID *id.ID, lineNo int, description string) source.QuoteLine {
	return source.QuoteLine{
		ID:          id.New(),
		ItemID:      itemID,
		LineNo:      lineNo,
		Description: description,
	}
}

func TestMatchQuoteLine_ByItemID(t *testing.T) {
	itemID := id.New()
	other := id.New()
	quotes := []source.QuoteLine{
		quoteLine(&other, 1, "Steel pipe 2in"),
		quoteLine(&itemID, 2, "Copper pipe 1in"),
	}
	line := source.OrderLine{ID: id.New(), ItemID: &itemID, LineNo: 5, Description: "something else"}

	matched, method := MatchQuoteLine(line, 0, quotes)

	assert.Equal(t, MatchByItemID, method)
	assert.Equal(t, quotes[1].ID, matched.ID)
	assert.False(t, method.LowConfidence())
}

func TestMatchQuoteLine_ByNormalizedDescription(t *testing.T) {
	quotes := []source.QuoteLine{
		quoteLine(nil, 1, "Steel Pipe,  2-inch"),
		quoteLine(nil, 2, "Copper fitting"),
	}
	line := source.OrderLine{ID: id.New(), Description: "steel pipe 2 inch"}

	matched, method := MatchQuoteLine(line, 1, quotes)

	assert.Equal(t, MatchByDescription, method)
	assert.Equal(t, quotes[0].ID, matched.ID)
}

func TestMatchQuoteLine_BySubstring(t *testing.T) {
	quotes := []source.QuoteLine{
		quoteLine(nil, 1, "Industrial valve"),
		quoteLine(nil, 2, "Heavy duty steel pipe 2 inch galvanized"),
	}
	line := source.OrderLine{ID: id.New(), Description: "steel pipe 2 inch"}

	matched, method := MatchQuoteLine(line, 0, quotes)

	assert.Equal(t, MatchByDescriptionSubstring, method)
	assert.Equal(t, quotes[1].ID, matched.ID)
}

func TestMatchQuoteLine_ByLineNumber(t *testing.T) {
	quotes := []source.QuoteLine{
		quoteLine(nil, 1, "Alpha"),
		quoteLine(nil, 7, "Beta"),
	}
	line := source.OrderLine{ID: id.New(), LineNo: 7, Description: "Gamma"}

	matched, method := MatchQuoteLine(line, 5, quotes)

	assert.Equal(t, MatchByLineNumber, method)
	assert.Equal(t, quotes[1].ID, matched.ID)
	assert.True(t, method.LowConfidence())
}

func TestMatchQuoteLine_ByPosition(t *testing.T) {
	quotes := []source.QuoteLine{
		quoteLine(nil, 0, "Alpha"),
		quoteLine(nil, 0, "Beta"),
	}
	line := source.OrderLine{ID: id.New(), Description: "Gamma"}

	matched, method := MatchQuoteLine(line, 1, quotes)

	assert.Equal(t, MatchByPosition, method)
	assert.Equal(t, quotes[1].ID, matched.ID)
	assert.True(t, method.LowConfidence())
}

func TestMatchQuoteLine_FirstAvailable(t *testing.T) {
	quotes := []source.QuoteLine{
		quoteLine(nil, 0, "Alpha"),
	}
	line := source.OrderLine{ID: id.New(), Description: "Gamma"}

	matched, method := MatchQuoteLine(line, 9, quotes)

	assert.Equal(t, MatchFirstAvailable, method)
	assert.Equal(t, quotes[0].ID, matched.ID)
	assert.True(t, method.LowConfidence())
}

func TestMatchQuoteLine_NoLines(t *testing.T) {
	line := source.OrderLine{ID: id.New(), Description: "Gamma"}

	matched, method := MatchQuoteLine(line, 0, nil)

	assert.Nil(t, matched)
	assert.Equal(t, MatchNone, method)
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "steel pipe 2 inch", NormalizeDescription("  Steel Pipe,  2-INCH!! "))
	assert.Equal(t, "", NormalizeDescription("---"))
	assert.Equal(t, "abc 123", NormalizeDescription("abc/123"))
}
