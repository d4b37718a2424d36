package ranking

import (
	"context"
	"math"
	"strings"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
)

// Weights for the value score. They sum to 1 so the result stays in [0,1].
const (
	discountWeight      = 0.5
	availabilityWeight  = 0.3
	affordabilityWeight = 0.2
)

// Heuristic scores each product relative to the rest of the set: deeper
// discounts, healthier stock and a lower price than its category peers all
// raise the score. A price drop on one item therefore moves its neighbours.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Rank(ctx context.Context, products []model.Product) ([]model.Product, error) {
	maxStock := 0
	maxPrice := make(map[string]float64)
	for _, p := range products {
		maxStock = max(maxStock, p.Stock)
		cat := strings.ToLower(p.Category)
		maxPrice[cat] = math.Max(maxPrice[cat], p.CurrentPrice.InexactFloat64())
	}

	out := make([]model.Product, 0, len(products))
	for i, p := range products {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		discount := float64(p.DiscountPercent()) / 100

		availability := 0.0
		if p.Stock > 0 && maxStock > 0 {
			availability = math.Log1p(float64(p.Stock)) / math.Log1p(float64(maxStock))
		}

		affordability := 0.0
		if top := maxPrice[strings.ToLower(p.Category)]; top > 0 {
			affordability = 1 - p.CurrentPrice.InexactFloat64()/top
		}

		score := discountWeight*discount + availabilityWeight*availability + affordabilityWeight*affordability
		score = math.Round(math.Min(math.Max(score, 0), 1)*1e4) / 1e4

		c := p.Clone()
		c.Score = &score
		out = append(out, c)
	}
	return out, nil
}
