package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPRepository fetches the bulk catalog from the storefront REST API
// (GET /api/products), which answers with a JSON array of product views.
type HTTPRepository struct {
	url    string
	client *http.Client
}

func NewHTTPRepository(url string, client *http.Client) *HTTPRepository {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPRepository{url: url, client: client}
}

func (r *HTTPRepository) FetchAll(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("fetch products: unexpected status %s", res.Status)
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()

	var out []map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return out, nil
}
