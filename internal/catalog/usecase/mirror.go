package usecase

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"go.uber.org/zap"
)

// mirrorQueue holds search-mirror work for a single worker. Writes for one id
// collapse to the newest record, so the queue is bounded by the catalog size
// and a later merge can never be overtaken by an earlier one.
type mirrorQueue struct {
	mu      sync.Mutex
	bulk    []model.Product
	pending map[model.ProductID]model.Product
	order   []model.ProductID
	wake    chan struct{}
}

func newMirrorQueue() *mirrorQueue {
	return &mirrorQueue{
		pending: make(map[model.ProductID]model.Product),
		wake:    make(chan struct{}, 1),
	}
}

// load replaces all queued work with a full catalog; anything queued before it
// is older than the load.
func (q *mirrorQueue) load(products []model.Product) {
	q.mu.Lock()
	q.bulk = products
	q.pending = make(map[model.ProductID]model.Product)
	q.order = nil
	q.mu.Unlock()
	q.signal()
}

func (q *mirrorQueue) put(p model.Product) {
	q.mu.Lock()
	if _, ok := q.pending[p.ID]; !ok {
		q.order = append(q.order, p.ID)
	}
	q.pending[p.ID] = p
	q.mu.Unlock()
	q.signal()
}

// take drains the queue: the bulk load first, then updates in first-queued order.
func (q *mirrorQueue) take() ([]model.Product, []model.Product) {
	q.mu.Lock()
	defer q.mu.Unlock()

	bulk := q.bulk
	updates := make([]model.Product, 0, len(q.order))
	for _, id := range q.order {
		updates = append(updates, q.pending[id])
	}
	q.bulk = nil
	q.pending = make(map[model.ProductID]model.Product)
	q.order = nil
	return bulk, updates
}

func (q *mirrorQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// runMirror is the only goroutine writing to the indexer.
func (e *catalogEngine) runMirror(stop <-chan struct{}, done chan<- struct{}) {
	defer e.wg.Done()
	defer close(done)

	for {
		select {
		case <-e.mirrorQ.wake:
			e.flushMirror()
		case <-stop:
			e.flushMirror()
			return
		}
	}
}

func (e *catalogEngine) flushMirror() {
	bulk, updates := e.mirrorQ.take()

	if len(bulk) > 0 {
		ctx, cancel := context.WithTimeout(e.ctx, e.loadTimeout)
		err := e.indexer.IndexAll(ctx, bulk)
		cancel()
		if err != nil {
			e.logger.Error("failed to mirror catalog load", zap.Int("products", len(bulk)), zap.Error(err))
		}
	}

	for _, p := range updates {
		if e.ctx.Err() != nil {
			return
		}
		ctx, cancel := context.WithTimeout(e.ctx, defaultIndexTimeout)
		err := e.indexer.Index(ctx, p)
		cancel()
		if err != nil {
			e.logger.Error("failed to index product", zap.String("product_id", string(p.ID)), zap.Error(err))
		}
	}
}
