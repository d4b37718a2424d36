package normalizer

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FieldAliases(t *testing.T) {
	patch, err := Normalize(map[string]any{
		"id":           float64(1),
		"Name":         "Lamp",
		"category":     "Home",
		"currentPrice": "100",
		"base_price":   json.Number("150"),
		"stock":        float64(12.7),
		"image_url":    "lamp.png",
		"badges":       []any{"Mega Deal", " ", "Low Stock"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ProductID("1"), patch.ID)
	assert.Equal(t, "Lamp", *patch.Name)
	assert.Equal(t, "Home", *patch.Category)
	assert.Equal(t, "100", patch.CurrentPrice.String())
	assert.Equal(t, "150", patch.BasePrice.String())
	assert.Equal(t, 12, *patch.Stock)
	assert.Equal(t, "lamp.png", *patch.ImageRef)
	assert.True(t, patch.HasBadges)
	assert.Equal(t, []string{"Mega Deal", "Low Stock"}, patch.Badges)
}

func TestNormalize_OnlyIDIsValid(t *testing.T) {
	patch, err := Normalize(map[string]any{"id": "sku-9"})
	require.NoError(t, err)

	assert.Equal(t, model.ProductID("sku-9"), patch.ID)
	assert.Nil(t, patch.Name)
	assert.Nil(t, patch.Category)
	assert.Nil(t, patch.CurrentPrice)
	assert.Nil(t, patch.BasePrice)
	assert.Nil(t, patch.Stock)
	assert.Nil(t, patch.ImageRef)
	assert.False(t, patch.HasBadges)

	p := model.NewProduct(patch)
	assert.Equal(t, model.UnassignedCategory, p.Category)
	assert.True(t, p.CurrentPrice.IsZero())
}

func TestNormalize_MissingID(t *testing.T) {
	_, err := Normalize(map[string]any{"name": "ghost"})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = Normalize(map[string]any{"id": "  "})
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = Normalize(map[string]any{"id": nil})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestNormalize_NumericIDsAreCanonical(t *testing.T) {
	for _, raw := range []any{1, int64(1), float64(1), json.Number("1")} {
		patch, err := Normalize(map[string]any{"id": raw})
		require.NoError(t, err)
		assert.Equal(t, model.ProductID("1"), patch.ID)
	}

	patch, err := Normalize(map[string]any{"id": "007"})
	require.NoError(t, err)
	assert.Equal(t, model.ProductID("007"), patch.ID, "string ids are kept verbatim")
}

func TestNormalize_PriceCoercion(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    string
		present bool
	}{
		{"absent", map[string]any{"id": 1}, "", false},
		{"first numeric alias wins", map[string]any{"id": 1, "currentPrice": "n/a", "price": 99.5}, "99.5", true},
		{"non numeric defaults to zero", map[string]any{"id": 1, "price": "free"}, "0", true},
		{"negative floors to zero", map[string]any{"id": 1, "price": -3}, "0", true},
		{"thousands separator", map[string]any{"id": 1, "price": "1,250"}, "1250", true},
		{"sql numeric bytes", map[string]any{"id": 1, "price": []byte("42.10")}, "42.1", true},
		{"NaN", map[string]any{"id": 1, "price": math.NaN()}, "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := Normalize(tt.raw)
			require.NoError(t, err)
			if !tt.present {
				assert.Nil(t, patch.CurrentPrice)
				return
			}
			require.NotNil(t, patch.CurrentPrice)
			assert.Equal(t, tt.want, patch.CurrentPrice.String())
		})
	}
}

func TestNormalize_StockCoercion(t *testing.T) {
	tests := []struct {
		raw  any
		want int
	}{
		{float64(5), 5},
		{"7", 7},
		{-2, 0},
		{math.NaN(), 0},
		{"lots", 0},
		{3.9, 3},
	}

	for _, tt := range tests {
		patch, err := Normalize(map[string]any{"id": 1, "stock": tt.raw})
		require.NoError(t, err)
		require.NotNil(t, patch.Stock)
		assert.Equal(t, tt.want, *patch.Stock, "stock %v", tt.raw)
	}
}

func TestNormalize_ImageAliasSkipsEmpty(t *testing.T) {
	patch, err := Normalize(map[string]any{
		"id":        2,
		"image_url": "",
		"imageUrl":  "",
		"image":     "https://cdn.example.com/a.png",
	})
	require.NoError(t, err)
	require.NotNil(t, patch.ImageRef)
	assert.Equal(t, "https://cdn.example.com/a.png", *patch.ImageRef)
}

func TestNormalize_BadgesFromString(t *testing.T) {
	patch, err := Normalize(map[string]any{"id": 3, "tags": "new, eco ,"})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "eco"}, patch.Badges)
}

func TestNormalizeAll_DropsPayloadsWithoutID(t *testing.T) {
	products, dropped := NormalizeAll([]map[string]any{
		{"id": 1, "name": "Lamp"},
		{"name": "no id"},
		{"id": 2, "name": "Desk"},
	})

	assert.Equal(t, 1, dropped)
	require.Len(t, products, 2)
	assert.Equal(t, model.ProductID("1"), products[0].ID)
	assert.Equal(t, model.ProductID("2"), products[1].ID)
}
