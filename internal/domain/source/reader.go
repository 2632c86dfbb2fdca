package source

import (
	"context"

	"tradecore/internal/core/id"
)

// Reader provides read access to upstream documents. The concrete
// implementation lives in infrastructure/storage/postgres; tests use
// in-memory fakes.
//
// Fulfillment aggregates are recomputed fresh on every derivation call
// rather than cached, so a late-arriving delivery is picked up by the
// next call.
type Reader interface {
	Order(ctx context.Context, orderID id.ID) (*Order, error)
	OrderLines(ctx context.Context, orderID id.ID) ([]OrderLine, error)

	Quote(ctx context.Context, quoteID id.ID) (*Quote, error)
	QuoteLines(ctx context.Context, quoteID id.ID) ([]QuoteLine, error)

	Delivery(ctx context.Context, deliveryID id.ID) (*Delivery, error)
	DeliveryLines(ctx context.Context, deliveryID id.ID) ([]DeliveryLine, error)

	// FulfillmentEvents returns the complete event history for the given
	// order lines, keyed by order line ID. Lines with no events are
	// absent from the map (first fulfillment).
	FulfillmentEvents(ctx context.Context, orderLineIDs []id.ID) (map[id.ID][]FulfillmentEvent, error)
}
