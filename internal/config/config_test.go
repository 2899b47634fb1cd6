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

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Empty(t, cfg.ElasticsearchURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.InDelta(t, 0.4, cfg.CorrectionThreshold, 1e-9)
	assert.Equal(t, 15, cfg.CategoryBoostPercent)
	assert.Equal(t, 10, cfg.BrandBoostPercent)
	assert.Equal(t, 5*time.Second, cfg.PrimarySearchTimeout)
	assert.Equal(t, time.Second, cfg.PersonalizationTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "9100")
	t.Setenv("KAFKA_BROKERS", "kafka1:9092,kafka2:9092")
	t.Setenv("SIMILARITY_CORRECTION_THRESHOLD", "0.6")
	t.Setenv("SEARCH_RESULTS_CACHE_TTL", "120")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, []string{"kafka1:9092", "kafka2:9092"}, cfg.KafkaBrokers)
	assert.InDelta(t, 0.6, cfg.CorrectionThreshold, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.SearchResultsTTL())
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	t.Setenv("SEARCH_HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("SIMILARITY_CORRECTION_THRESHOLD", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid correction threshold")
}

func TestLoad_RejectsZeroBatchSize(t *testing.T) {
	t.Setenv("PERSONALIZATION_BATCH_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid batch size")
}

func TestTTLHelpers(t *testing.T) {
	cfg := &Config{
		SearchResultsCacheTTL: 60,
		FacetsCacheTTL:        300,
		CorrectionCacheTTL:    3600,
		PreferencesCacheTTL:   900,
	}

	assert.Equal(t, time.Minute, cfg.SearchResultsTTL())
	assert.Equal(t, 5*time.Minute, cfg.FacetsTTL())
	assert.Equal(t, time.Hour, cfg.CorrectionTTL())
	assert.Equal(t, 15*time.Minute, cfg.PreferencesTTL())
}
