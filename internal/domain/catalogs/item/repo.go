package item

import (
	"context"

	"tradecore/internal/core/id"
)

// Repository defines persistence operations for the item catalog.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
	GetByCode(ctx context.Context, code string) (*Item, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
