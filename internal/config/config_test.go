package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, BackendPostgres, cfg.CatalogBackend)
	assert.Equal(t, 24*time.Hour, cfg.ConversationTTL)
	assert.Equal(t, time.Duration(0), cfg.AssistantResponseDelay)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowQueryThreshold())
}

func TestLoad_MemoryBackend(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "memory")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.CatalogBackend)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "sqlite")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "CATALOG_BACKEND must be")
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("REVIEWHUB_HTTP_PORT", "70000")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid HTTP port")
}

func TestLoad_RedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/2")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
}

func TestLoad_KafkaBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_AssistantDelay(t *testing.T) {
	t.Setenv("ASSISTANT_RESPONSE_DELAY", "800ms")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 800*time.Millisecond, cfg.AssistantResponseDelay)
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	_, err := Load()
	assert.ErrorContains(t, err, "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestValidate_PoolBounds(t *testing.T) {
	t.Setenv("DB_MIN_CONNS", "30")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_MIN_CONNS")
}
