package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog"
	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "catalog:scores:"

// Cached memoizes a Ranker in Redis keyed by a fingerprint of the whole set,
// so an identical catalog is never scored twice within the TTL. Redis errors
// fall through to the wrapped ranker.
type Cached struct {
	next   catalog.Ranker
	cache  redis.Cmdable
	ttl    time.Duration
	logger logger.ZapLogger
}

func NewCached(next catalog.Ranker, cache redis.Cmdable, ttl time.Duration, log logger.ZapLogger) *Cached {
	return &Cached{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

func (c *Cached) Rank(ctx context.Context, products []model.Product) ([]model.Product, error) {
	key := cacheKeyPrefix + Fingerprint(products)

	val, err := c.cache.Get(ctx, key).Result()
	if err == nil {
		var scores map[model.ProductID]float64
		if err := json.Unmarshal([]byte(val), &scores); err == nil {
			return Annotate(products, scores), nil
		}
		c.logger.Warn("discarding unreadable score cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("score cache lookup failed", zap.Error(err))
	}

	ranked, err := c.next.Rank(ctx, products)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(Scores(ranked)); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("score cache write failed", zap.Error(err))
		}
	}
	return ranked, nil
}

// Fingerprint hashes every field the scoring depends on, in set order.
func Fingerprint(products []model.Product) string {
	h := xxhash.New()
	for _, p := range products {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d\n",
			p.ID, p.Name, p.Category, p.BasePrice.String(), p.CurrentPrice.String(), p.Stock)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Scores extracts the id -> score map, skipping unscored records.
func Scores(products []model.Product) map[model.ProductID]float64 {
	out := make(map[model.ProductID]float64, len(products))
	for _, p := range products {
		if p.Score != nil {
			out[p.ID] = *p.Score
		}
	}
	return out
}

// Annotate returns copies of products carrying the scores found in scores.
// Products without an entry are left out, as a partial ranking would.
func Annotate(products []model.Product, scores map[model.ProductID]float64) []model.Product {
	out := make([]model.Product, 0, len(scores))
	for _, p := range products {
		s, ok := scores[p.ID]
		if !ok {
			continue
		}
		c := p.Clone()
		c.Score = &s
		out = append(out, c)
	}
	return out
}
