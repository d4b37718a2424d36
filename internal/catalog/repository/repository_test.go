package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRepository_FetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Lamp","price":100,"basePrice":150},{"id":2,"name":"Lamp Pro"}]`))
	}))
	defer srv.Close()

	repo := NewHTTPRepository(srv.URL+"/api/products", srv.Client())
	rows, err := repo.FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, json.Number("1"), rows[0]["id"])
	assert.Equal(t, "Lamp Pro", rows[1]["name"])
}

func TestHTTPRepository_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPRepository(srv.URL, nil).FetchAll(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestTextColumns(t *testing.T) {
	row := textColumns(map[string]any{
		"id":         int64(4),
		"name":       []byte("Desk"),
		"base_price": []byte("120.00"),
		"category":   nil,
	})

	assert.Equal(t, int64(4), row["id"])
	assert.Equal(t, "Desk", row["name"])
	assert.Equal(t, "120.00", row["base_price"])
	assert.Nil(t, row["category"])
}
