package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "postgres", cfg.Catalog.Source)
	assert.Equal(t, "kafka", cfg.Catalog.Channel)
	assert.Equal(t, 3*time.Second, cfg.Catalog.RankTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("CATALOG_CHANNEL", "redis")
	t.Setenv("CATALOG_RANK_TIMEOUT", "750ms")
	t.Setenv("CATALOG_LOAD_TIMEOUT", "20")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, "redis", cfg.Catalog.Channel)
	assert.Equal(t, 750*time.Millisecond, cfg.Catalog.RankTimeout)
	assert.Equal(t, 20*time.Second, cfg.Catalog.LoadTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0, cfg.Redis.DB)
}
