package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-engine/internal/catalog"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/normalizer"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/ranking"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/selection"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/store"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/view"
	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultRankTimeout  = 3 * time.Second
	defaultLoadTimeout  = 10 * time.Second
	defaultIndexTimeout = 5 * time.Second
)

var ErrAlreadyStarted = errors.New("catalog engine already started")

type Option func(*catalogEngine)

func WithIndexer(idx catalog.Indexer) Option {
	return func(e *catalogEngine) { e.indexer = idx }
}

func WithRankTimeout(d time.Duration) Option {
	return func(e *catalogEngine) {
		if d > 0 {
			e.rankTimeout = d
		}
	}
}

func WithLoadTimeout(d time.Duration) Option {
	return func(e *catalogEngine) {
		if d > 0 {
			e.loadTimeout = d
		}
	}
}

type catalogEngine struct {
	store   *store.Store
	source  catalog.Source
	channel catalog.UpdateChannel
	ranker  catalog.Ranker
	indexer catalog.Indexer
	binder  *selection.Binder
	logger  logger.ZapLogger

	rankTimeout time.Duration
	loadTimeout time.Duration

	// ctx spans the engine's life; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mergeMu pairs each merge with the ranking token it issues, so token
	// order always follows merge order. It also guards rankCancel and orders
	// mirror writes.
	mergeMu    sync.Mutex
	rankCancel context.CancelFunc

	mirrorQ    *mirrorQueue
	mirrorStop chan struct{}
	mirrorDone chan struct{}

	filterMu sync.RWMutex
	category string
	search   string

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	detach      func()

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}

	rankHook func(token uint64, applied bool)
}

func NewEngine(s *store.Store, source catalog.Source, channel catalog.UpdateChannel, ranker catalog.Ranker, log logger.ZapLogger, opts ...Option) catalog.UseCase {
	ctx, cancel := context.WithCancel(context.Background())
	e := &catalogEngine{
		store:       s,
		source:      source,
		channel:     channel,
		ranker:      ranker,
		binder:      selection.NewBinder(),
		logger:      log.With(zap.String("session_id", uuid.NewString())),
		rankTimeout: defaultRankTimeout,
		loadTimeout: defaultLoadTimeout,
		ctx:         ctx,
		cancel:      cancel,
		mirrorQ:     newMirrorQueue(),
		category:    view.AllCategories,
		watchers:    make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start runs the bulk load, issues the first ranking pass and attaches the
// update channel. Load and subscription failures are logged, not returned:
// the engine keeps serving whatever state it has.
func (e *catalogEngine) Start(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true

	if e.indexer != nil {
		e.mirrorStop = make(chan struct{})
		e.mirrorDone = make(chan struct{})
		e.wg.Add(1)
		go e.runMirror(e.mirrorStop, e.mirrorDone)
	}

	e.load(ctx)

	if e.channel != nil {
		detach, err := e.channel.Subscribe(e.ctx, e.HandleUpdate)
		if err != nil {
			e.logger.Error("Failed to subscribe to inventory updates, serving static catalog", zap.Error(err))
		} else {
			e.detach = detach
			e.logger.Info("Subscribed to inventory updates")
		}
	}
	return nil
}

func (e *catalogEngine) load(ctx context.Context) {
	if e.source == nil {
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, e.loadTimeout)
	defer cancel()

	raws, err := e.source.FetchAll(loadCtx)
	if err != nil {
		e.logger.Error("Product fetch failed, keeping current catalog", zap.Error(err))
		return
	}

	products, dropped := normalizer.NormalizeAll(raws)
	if dropped > 0 {
		e.logger.Warn("Dropped product rows without id", zap.Int("dropped", dropped))
	}

	e.mergeMu.Lock()
	e.store.Load(products)
	e.issueRank()
	if e.indexer != nil {
		e.mirrorQ.load(e.store.Snapshot())
	}
	e.mergeMu.Unlock()

	e.logger.Info("Catalog loaded", zap.Int("products", len(products)))
	e.notify()
}

// Stop releases the channel subscription, gives the search mirror a bounded
// chance to drain, cancels in-flight ranking and waits for background work.
// Safe to call more than once.
func (e *catalogEngine) Stop() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true

	if e.detach != nil {
		e.detach()
		e.logger.Info("Detached from inventory updates")
	}
	if e.mirrorStop != nil {
		close(e.mirrorStop)
		select {
		case <-e.mirrorDone:
		case <-time.After(defaultIndexTimeout):
			e.logger.Warn("Search mirror did not drain before shutdown")
		}
	}
	e.cancel()
	e.wg.Wait()
}

// HandleUpdate is the channel callback: normalize, merge, re-rank, notify.
func (e *catalogEngine) HandleUpdate(raw map[string]any) {
	patch, err := normalizer.Normalize(raw)
	if err != nil {
		e.logger.Warn("Dropping inventory update", zap.Error(err))
		return
	}

	e.mergeMu.Lock()
	rec, err := e.store.Merge(patch)
	if err != nil {
		e.mergeMu.Unlock()
		e.logger.Warn("Failed to merge inventory update", zap.String("product_id", string(patch.ID)), zap.Error(err))
		return
	}
	e.issueRank()
	e.mirror(rec)
	e.mergeMu.Unlock()

	e.logger.Debug("Merged inventory update",
		zap.String("product_id", string(rec.ID)),
		zap.Int("stock", rec.Stock),
		zap.String("price", rec.CurrentPrice.String()),
	)
	e.notify()
}

// issueRank must run under mergeMu. The previous request is cancelled: its
// token is already stale, so its result could never be applied.
func (e *catalogEngine) issueRank() {
	if e.ranker == nil {
		return
	}
	if e.rankCancel != nil {
		e.rankCancel()
	}

	token, snapshot := e.store.BeginRank()
	ctx, cancel := context.WithTimeout(e.ctx, e.rankTimeout)
	e.rankCancel = cancel

	e.wg.Add(1)
	go e.rank(ctx, cancel, token, snapshot)
}

type rankResult struct {
	products []model.Product
	err      error
}

func (e *catalogEngine) rank(ctx context.Context, cancel context.CancelFunc, token uint64, snapshot []model.Product) {
	defer e.wg.Done()
	defer cancel()

	// The ranker runs on its own goroutine so a collaborator that ignores ctx
	// cannot hold up Stop.
	done := make(chan rankResult, 1)
	go func() {
		products, err := e.ranker.Rank(ctx, snapshot)
		done <- rankResult{products: products, err: err}
	}()

	var res rankResult
	select {
	case <-ctx.Done():
		res.err = ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) && e.ctx.Err() == nil {
			e.logger.Debug("Ranking pass superseded", zap.Uint64("token", token))
		} else {
			e.logger.Warn("Ranking pass failed, keeping previous scores", zap.Uint64("token", token), zap.Error(res.err))
		}
		e.afterRank(token, false)
		return
	}

	applied := e.store.ApplyRanked(token, ranking.Scores(res.products))
	if !applied {
		e.logger.Debug("Discarding stale ranking response", zap.Uint64("token", token))
	} else {
		e.notify()
	}
	e.afterRank(token, applied)
}

func (e *catalogEngine) afterRank(token uint64, applied bool) {
	if e.rankHook != nil {
		e.rankHook(token, applied)
	}
}

// mirror must run under mergeMu so queued writes follow merge order.
func (e *catalogEngine) mirror(p model.Product) {
	if e.indexer == nil {
		return
	}
	e.mirrorQ.put(p)
}

func (e *catalogEngine) View() []model.Product {
	category, search := e.Filter()
	return view.Filter(e.store.Snapshot(), category, search)
}

func (e *catalogEngine) SetCategory(category string) {
	e.filterMu.Lock()
	e.category = category
	e.filterMu.Unlock()
	e.notify()
}

func (e *catalogEngine) SetSearch(term string) {
	e.filterMu.Lock()
	e.search = term
	e.filterMu.Unlock()
	e.notify()
}

func (e *catalogEngine) Filter() (string, string) {
	e.filterMu.RLock()
	defer e.filterMu.RUnlock()
	return e.category, e.search
}

func (e *catalogEngine) Categories() []string {
	return e.store.Categories()
}

func (e *catalogEngine) Select(id model.ProductID) {
	e.binder.Select(id)
	e.notify()
}

func (e *catalogEngine) ClearSelection() {
	e.binder.Clear()
	e.notify()
}

func (e *catalogEngine) Selected() (model.Product, bool) {
	return e.binder.Resolve(e.store)
}

// Watch signals after every change to the catalog, its scores, the filters or
// the selection. Signals coalesce; the channel closes when ctx ends or the
// engine stops.
func (e *catalogEngine) Watch(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)

	e.watchMu.Lock()
	e.watchers[ch] = struct{}{}
	e.watchMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-e.ctx.Done():
		}
		e.watchMu.Lock()
		delete(e.watchers, ch)
		close(ch)
		e.watchMu.Unlock()
	}()
	return ch
}

func (e *catalogEngine) notify() {
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	for ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
