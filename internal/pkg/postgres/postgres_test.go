package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db",
		Port:     "5432",
		User:     "omnipos",
		Password: "secret",
		DBName:   "omnipos_product",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=omnipos password=secret dbname=omnipos_product sslmode=disable", cfg.DSN())
}
