package catalog

import (
	"context"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
)

type UseCase interface {
	Start(ctx context.Context) error
	Stop()

	HandleUpdate(raw map[string]any)

	// View state
	View() []model.Product
	SetCategory(category string)
	SetSearch(term string)
	Filter() (category, search string)
	Categories() []string

	// Selection
	Select(id model.ProductID)
	ClearSelection()
	Selected() (model.Product, bool)

	Watch(ctx context.Context) <-chan struct{}
}
