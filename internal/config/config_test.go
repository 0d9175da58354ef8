package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, EngineElasticsearch, cfg.SearchEngine)
	assert.Equal(t, "http://localhost:9200", cfg.ElasticsearchURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "search-service", cfg.KafkaGroupID)
	assert.Equal(t, "menontrucks", cfg.PostgresDB)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidSearchEngine(t *testing.T) {
	t.Setenv("SEARCH_ENGINE", "solr")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCH_ENGINE")
}

func TestLoad_MemoryEngine(t *testing.T) {
	t.Setenv("SEARCH_ENGINE", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, EngineMemory, cfg.SearchEngine)
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE")
}

func TestLoad_KafkaBrokersList(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestPostgresAndRedisConfig(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("REDIS_HOST", "cache.internal")

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.PostgresConfig()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Contains(t, pg.DSN(), "db.internal:5432/menontrucks")

	r := cfg.RedisConfig()
	assert.Equal(t, "cache.internal:6379", r.Addr())
}
