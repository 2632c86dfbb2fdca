package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradecore/internal/core/entity"
	"tradecore/internal/core/id"
)

type mockCatalog struct {
	entity.BaseCatalog
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

type mockDocument struct {
	entity.Document
	CustomerID id.ID  `db:"customer_id"`
	Skipped    string `db:"-"`
	Untagged   string
}

func TestExtractDBColumns_EmbeddedStructs(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expected := []string{"id", "deletion_mark", "version", "code", "name"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
}

func TestExtractDBColumns_SkipsUntaggedAndDash(t *testing.T) {
	cols := ExtractDBColumns[mockDocument]()

	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "number")
	assert.Contains(t, cols, "created_by")
	assert.Contains(t, cols, "customer_id")
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "Skipped")
	assert.NotContains(t, cols, "Untagged")
}

func TestStructToMap_EmbeddedStructs(t *testing.T) {
	cat := mockCatalog{
		BaseCatalog: entity.BaseCatalog{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				DeletionMark: true,
				Version:      5,
			},
		},
		Code: "ITM-001",
		Name: "Steel Pipe",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "ITM-001", m["code"])
	assert.Equal(t, "Steel Pipe", m["name"])
}

func TestStructToMap_DocumentFields(t *testing.T) {
	doc := mockDocument{
		Document:   entity.NewDocument("USD"),
		CustomerID: id.New(),
		Skipped:    "ignored",
	}
	doc.Number = "INV-2026-00001"

	m := StructToMap(doc)

	assert.Equal(t, "INV-2026-00001", m["number"])
	assert.Equal(t, "USD", m["currency"])
	assert.Equal(t, doc.CustomerID, m["customer_id"])
	_, hasSkipped := m["Skipped"]
	assert.False(t, hasSkipped)
}

func TestStructToMap_PointerInput(t *testing.T) {
	cat := &mockCatalog{Code: "ITM-002"}
	m := StructToMap(cat)
	assert.Equal(t, "ITM-002", m["code"])
}
