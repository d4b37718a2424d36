package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const fetchAllQuery = `SELECT * FROM products ORDER BY id`

// PGRepository reads the bulk catalog straight from the products table. Rows
// come back as raw column maps and go through the same normalizer as pushed
// frames, so column naming differences are absorbed there.
type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FetchAll(ctx context.Context) ([]map[string]any, error) {
	rows, err := r.DB.QueryxContext(ctx, fetchAllQuery)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, textColumns(row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// textColumns turns the driver's []byte values (text, numeric, uuid) into
// strings so they survive copying and read naturally downstream.
func textColumns(row map[string]any) map[string]any {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
