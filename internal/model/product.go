package model

import (
	"github.com/shopspring/decimal"
)

// UnassignedCategory is the bucket for products whose payload carries no category.
const UnassignedCategory = "unassigned"

type ProductID string

// Product is the canonical in-memory catalog item.
type Product struct {
	ID           ProductID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	BasePrice    decimal.Decimal `json:"base_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Stock        int             `json:"stock"`
	ImageRef     string          `json:"image_ref"`
	Score        *float64        `json:"score"` // Nil until the first ranking pass lands
	Badges       []string        `json:"badges"`

	// SuppliedBase is the last base price a payload actually carried.
	// BasePrice is derived from it and the current price on every Apply.
	SuppliedBase *decimal.Decimal `json:"-"`
}

// ProductPatch is a partial update. Nil fields are absent and leave the
// stored value untouched.
type ProductPatch struct {
	ID           ProductID
	Name         *string
	Description  *string
	Category     *string
	BasePrice    *decimal.Decimal
	CurrentPrice *decimal.Decimal
	Stock        *int
	ImageRef     *string
	Badges       []string
	HasBadges    bool
}

// NewProduct builds a record from a patch seen for the first time.
func NewProduct(p ProductPatch) Product {
	rec := Product{
		ID:       p.ID,
		Category: UnassignedCategory,
		Badges:   []string{},
	}
	rec.Apply(p)
	return rec
}

// Apply overwrites every field present in p and reconciles prices.
func (r *Product) Apply(p ProductPatch) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Category != nil {
		r.Category = *p.Category
		if r.Category == "" {
			r.Category = UnassignedCategory
		}
	}
	if p.BasePrice != nil {
		base := *p.BasePrice
		r.SuppliedBase = &base
	}
	if p.CurrentPrice != nil {
		r.CurrentPrice = *p.CurrentPrice
	}
	if p.Stock != nil {
		r.Stock = max(*p.Stock, 0)
	}
	if p.ImageRef != nil {
		r.ImageRef = *p.ImageRef
	}
	if p.HasBadges {
		r.Badges = append([]string{}, p.Badges...)
	}
	r.reconcilePrices()
}

// reconcilePrices derives BasePrice as max(supplied base, current). A base
// the source never sent follows the current price, so a price drop alone
// never reads as a discount.
func (r *Product) reconcilePrices() {
	if r.CurrentPrice.IsNegative() {
		r.CurrentPrice = decimal.Zero
	}
	r.BasePrice = r.CurrentPrice
	if r.SuppliedBase != nil && r.SuppliedBase.GreaterThan(r.CurrentPrice) {
		r.BasePrice = *r.SuppliedBase
	}
}

// Clone returns a copy that shares no mutable state with r.
func (r Product) Clone() Product {
	c := r
	if r.Score != nil {
		s := *r.Score
		c.Score = &s
	}
	if r.SuppliedBase != nil {
		b := *r.SuppliedBase
		c.SuppliedBase = &b
	}
	c.Badges = append([]string{}, r.Badges...)
	return c
}

// ScoreOrZero treats an unscored record as the lowest relevance.
func (r Product) ScoreOrZero() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}

func (r Product) HasDiscount() bool {
	ok, _ := Discount(r.BasePrice, r.CurrentPrice)
	return ok
}

func (r Product) DiscountPercent() int {
	_, pct := Discount(r.BasePrice, r.CurrentPrice)
	return pct
}
