// Package normalizer turns heterogeneous product payloads (bulk rows, push
// frames) into model.ProductPatch values. Coercion is best effort: nothing but
// a missing id is an error.
package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-catalog-engine/internal/model"
	"github.com/shopspring/decimal"
)

var ErrMissingID = errors.New("product payload has no id")

// Aliases are matched after canonicalKey, so "base_price", "basePrice" and
// "BASE-PRICE" are the same key.
var (
	idKeys           = []string{"id", "productid"}
	nameKeys         = []string{"name", "title", "productname"}
	descriptionKeys  = []string{"description", "desc"}
	categoryKeys     = []string{"category", "categoryname"}
	currentPriceKeys = []string{"currentprice", "price", "saleprice"}
	basePriceKeys    = []string{"baseprice", "originalprice", "listprice", "regularprice"}
	stockKeys        = []string{"stock", "quantity", "qty", "stockcount", "availablequantity"}
	imageKeys        = []string{"imageurl", "image", "img", "thumbnail"}
	badgeKeys        = []string{"badges", "labels", "tags"}
)

func Normalize(raw map[string]any) (model.ProductPatch, error) {
	fields := canonicalize(raw)

	id, ok := productID(fields)
	if !ok {
		return model.ProductPatch{}, ErrMissingID
	}
	patch := model.ProductPatch{ID: id}

	if v, ok := lookup(fields, nameKeys); ok {
		s := toString(v)
		patch.Name = &s
	}
	if v, ok := lookup(fields, descriptionKeys); ok {
		s := toString(v)
		patch.Description = &s
	}
	if v, ok := lookup(fields, categoryKeys); ok {
		s := strings.TrimSpace(toString(v))
		patch.Category = &s
	}

	patch.CurrentPrice = price(fields, currentPriceKeys)
	patch.BasePrice = price(fields, basePriceKeys)

	if v, ok := lookup(fields, stockKeys); ok {
		n := toStock(v)
		patch.Stock = &n
	}

	for _, k := range imageKeys {
		if v, ok := fields[k]; ok {
			if s := strings.TrimSpace(toString(v)); s != "" {
				patch.ImageRef = &s
				break
			}
		}
	}

	if v, ok := lookup(fields, badgeKeys); ok {
		patch.Badges = toBadges(v)
		patch.HasBadges = true
	}

	return patch, nil
}

// NormalizeAll keeps every payload that carries an id, in order, and reports
// how many were dropped.
func NormalizeAll(raws []map[string]any) ([]model.Product, int) {
	out := make([]model.Product, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		patch, err := Normalize(raw)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, model.NewProduct(patch))
	}
	return out, dropped
}

func canonicalKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

// canonicalize walks keys in sorted order so collisions ("price" and "Price")
// resolve the same way every time.
func canonicalize(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		ck := canonicalKey(k)
		if _, seen := out[ck]; seen {
			continue
		}
		if raw[k] == nil {
			continue
		}
		out[ck] = raw[k]
	}
	return out
}

func lookup(fields map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func productID(fields map[string]any) (model.ProductID, bool) {
	v, ok := lookup(fields, idKeys)
	if !ok {
		return "", false
	}
	switch v.(type) {
	case string, []byte:
	default:
		// Numeric ids render canonically: 1, 1.0 and json.Number("1") are one product.
		if d, ok := toDecimal(v); ok {
			return model.ProductID(d.String()), true
		}
	}
	s := strings.TrimSpace(toString(v))
	if s == "" {
		return "", false
	}
	return model.ProductID(s), true
}

// price returns the first alias holding a number. Aliases that are present but
// unparseable coerce to zero; no alias at all means the field is absent.
func price(fields map[string]any, keys []string) *decimal.Decimal {
	present := false
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		present = true
		if d, ok := toDecimal(v); ok {
			if d.IsNegative() {
				d = decimal.Zero
			}
			return &d
		}
	}
	if present {
		zero := decimal.Zero
		return &zero
	}
	return nil
}

func toStock(v any) int {
	d, ok := toDecimal(v)
	if !ok || d.IsNegative() {
		return 0
	}
	n := d.Floor().IntPart()
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(t), true
	case float32:
		return toDecimal(float64(t))
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int8:
		return decimal.NewFromInt(int64(t)), true
	case int16:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case uint:
		return toDecimal(strconv.FormatUint(uint64(t), 10))
	case uint8:
		return decimal.NewFromInt(int64(t)), true
	case uint16:
		return decimal.NewFromInt(int64(t)), true
	case uint32:
		return decimal.NewFromInt(int64(t)), true
	case uint64:
		return toDecimal(strconv.FormatUint(t, 10))
	case json.Number:
		return toDecimal(t.String())
	case []byte:
		return toDecimal(string(t))
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func toBadges(v any) []string {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []any:
		for _, e := range t {
			if e == nil {
				continue
			}
			items = append(items, toString(e))
		}
	case string:
		items = strings.Split(t, ",")
	case []byte:
		items = strings.Split(string(t), ",")
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
