// Package view derives the ordered product list shown to the user.
package view

import (
	"sort"
	"strings"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
)

// AllCategories disables the category filter.
const AllCategories = "ALL"

// Filter keeps the records matching category AND search, then orders them by
// relevance descending. Ties keep input order, so feeding it a store snapshot
// yields insertion order among equal scores. The input slice is not modified.
func Filter(products []model.Product, category, search string) []model.Product {
	category = strings.TrimSpace(category)
	term := strings.ToLower(strings.TrimSpace(search))
	filterCategory := category != "" && !strings.EqualFold(category, AllCategories)

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if filterCategory && !strings.EqualFold(p.Category, category) {
			continue
		}
		if term != "" && !matches(p, term) {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreOrZero() > out[j].ScoreOrZero()
	})
	return out
}

func matches(p model.Product, term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Category), term)
}
