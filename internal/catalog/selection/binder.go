package selection

import (
	"sync"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
)

// Lookup resolves an id against the latest catalog state.
type Lookup interface {
	Get(id model.ProductID) (model.Product, bool)
}

// Binder remembers which product is being inspected by id only, so every
// resolve sees the latest merged data for it.
type Binder struct {
	mu       sync.RWMutex
	selected *model.ProductID
}

func NewBinder() *Binder {
	return &Binder{}
}

func (b *Binder) Select(id model.ProductID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = &id
}

func (b *Binder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = nil
}

func (b *Binder) SelectedID() (model.ProductID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.selected == nil {
		return "", false
	}
	return *b.selected, true
}

// Resolve returns the current record for the selected id. An id that has left
// the catalog resolves to none; the selection itself is kept.
func (b *Binder) Resolve(src Lookup) (model.Product, bool) {
	id, ok := b.SelectedID()
	if !ok {
		return model.Product{}, false
	}
	return src.Get(id)
}

// Snapshot adapts a plain product slice to Lookup.
type Snapshot []model.Product

func (s Snapshot) Get(id model.ProductID) (model.Product, bool) {
	for _, p := range s {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}
