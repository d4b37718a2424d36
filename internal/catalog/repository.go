package catalog

import (
	"context"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
)

// Source answers the one-shot bulk fetch with raw, un-normalized payloads.
type Source interface {
	FetchAll(ctx context.Context) ([]map[string]any, error)
}

// UpdateChannel pushes raw product payloads, one per event, in receipt order.
// Delivery is at-most-once. The returned detach func stops delivery and
// releases the underlying connection; it is safe to call more than once.
type UpdateChannel interface {
	Subscribe(ctx context.Context, handler func(raw map[string]any)) (detach func(), err error)
}

// Ranker scores the whole product set. It may return a subset; records whose
// Score is nil are ignored.
type Ranker interface {
	Rank(ctx context.Context, products []model.Product) ([]model.Product, error)
}

// Indexer mirrors merged records to a search backend. Best effort.
type Indexer interface {
	Index(ctx context.Context, p model.Product) error
	IndexAll(ctx context.Context, products []model.Product) error
}
