package search

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	pkgsearch "github.com/fekuna/omnipos-catalog-engine/internal/pkg/search"
	"go.uber.org/zap"
)

const productMapping = `{
	"mappings": {
		"properties": {
			"name": { "type": "text" },
			"description": { "type": "text" },
			"category": { "type": "keyword" },
			"base_price": { "type": "double" },
			"current_price": { "type": "double" },
			"stock": { "type": "integer" },
			"badges": { "type": "keyword" }
		}
	}
}`

type backend interface {
	CreateIndex(ctx context.Context, name, mapping string) error
	Index(ctx context.Context, index, id string, doc any) error
	BulkIndex(ctx context.Context, index string, docs []pkgsearch.BulkDoc) error
}

// Indexer mirrors merged catalog records into Elasticsearch.
type Indexer struct {
	client backend
	index  string
	logger logger.ZapLogger

	mu      sync.Mutex
	ensured bool
}

func NewIndexer(client *pkgsearch.Client, index string, log logger.ZapLogger) *Indexer {
	return &Indexer{client: client, index: index, logger: log}
}

type document struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	BasePrice    float64  `json:"base_price"`
	CurrentPrice float64  `json:"current_price"`
	Stock        int      `json:"stock"`
	ImageRef     string   `json:"image_ref"`
	Badges       []string `json:"badges"`
}

func toDocument(p model.Product) document {
	return document{
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		BasePrice:    p.BasePrice.InexactFloat64(),
		CurrentPrice: p.CurrentPrice.InexactFloat64(),
		Stock:        p.Stock,
		ImageRef:     p.ImageRef,
		Badges:       p.Badges,
	}
}

func (i *Indexer) Index(ctx context.Context, p model.Product) error {
	i.ensureIndex(ctx)
	return i.client.Index(ctx, i.index, string(p.ID), toDocument(p))
}

// IndexAll mirrors a full catalog load in bulk requests.
func (i *Indexer) IndexAll(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}
	i.ensureIndex(ctx)

	docs := make([]pkgsearch.BulkDoc, 0, len(products))
	for _, p := range products {
		docs = append(docs, pkgsearch.BulkDoc{ID: string(p.ID), Doc: toDocument(p)})
	}
	return i.client.BulkIndex(ctx, i.index, docs)
}

// ensureIndex creates the index lazily. A failure is retried on the next call.
func (i *Indexer) ensureIndex(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ensured {
		return
	}
	if err := i.client.CreateIndex(ctx, i.index, productMapping); err != nil {
		i.logger.Warn("failed to ensure search index", zap.String("index", i.index), zap.Error(err))
		return
	}
	i.ensured = true
}
