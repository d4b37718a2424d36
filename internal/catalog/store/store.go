// Package store holds the authoritative in-memory catalog. All mutation goes
// through Load, Merge, ApplyScores and ApplyRanked; readers only ever get
// copies.
package store

import (
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
)

var ErrMissingID = errors.New("patch has no product id")

type Store struct {
	mu      sync.RWMutex
	records map[model.ProductID]*model.Product
	order   []model.ProductID

	// Ranking request tokens. issued only grows; applied trails it.
	issued  uint64
	applied uint64
}

func New() *Store {
	return &Store{
		records: make(map[model.ProductID]*model.Product),
	}
}

// Load replaces the whole set. Slice order becomes presentation order; a
// repeated id keeps its first position and the later record's content.
func (s *Store) Load(products []model.Product) {
	records := make(map[model.ProductID]*model.Product, len(products))
	order := make([]model.ProductID, 0, len(products))

	for _, p := range products {
		if p.ID == "" {
			continue
		}
		if existing, ok := records[p.ID]; ok {
			*existing = p.Clone()
			continue
		}
		c := p.Clone()
		records[p.ID] = &c
		order = append(order, p.ID)
	}

	s.mu.Lock()
	s.records = records
	s.order = order
	s.mu.Unlock()
}

// Merge upserts by id and returns a copy of the merged record.
func (s *Store) Merge(patch model.ProductPatch) (model.Product, error) {
	if patch.ID == "" {
		return model.Product{}, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[patch.ID]
	if !ok {
		p := model.NewProduct(patch)
		s.records[patch.ID] = &p
		s.order = append(s.order, patch.ID)
		return p.Clone(), nil
	}

	rec.Apply(patch)
	return rec.Clone(), nil
}

// ApplyScores sets the score of every id present in both scores and the store.
// Ids missing from scores keep their last known score.
func (s *Store) ApplyScores(scores map[model.ProductID]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyScoresLocked(scores)
}

// BeginRank issues the next ranking token together with the snapshot that
// request covers.
func (s *Store) BeginRank() (uint64, []model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued, s.snapshotLocked()
}

// ApplyRanked applies scores only when token is the latest issued request.
// Anything older is stale and dropped; the return value says which happened.
func (s *Store) ApplyRanked(token uint64, scores map[model.ProductID]float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.issued || token <= s.applied {
		return false
	}
	s.applied = token
	s.applyScoresLocked(scores)
	return true
}

func (s *Store) applyScoresLocked(scores map[model.ProductID]float64) {
	for id, score := range scores {
		rec, ok := s.records[id]
		if !ok || math.IsNaN(score) {
			continue
		}
		v := math.Min(math.Max(score, 0), 1)
		rec.Score = &v
	}
}

func (s *Store) Snapshot() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() []model.Product {
	out := make([]model.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

func (s *Store) Get(id model.ProductID) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return model.Product{}, false
	}
	return rec.Clone(), true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Categories lists the distinct categories, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	out := []string{}
	for _, id := range s.order {
		c := s.records[id].Category
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
