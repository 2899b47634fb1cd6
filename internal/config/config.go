package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/velora/search-service/pkg/config"
)

// Config holds all configuration for the search service. It is loaded once at
// startup and passed by reference into component constructors; deep logic
// never reads the process environment directly.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL catalog store
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"velora"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"velora_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"velora"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Redis cache
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// External index backend (elasticsearch). When empty, only the primary
	// Postgres backend is used.
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:""`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"marketplace_products"`

	// Kafka catalog events (index sync + cache invalidation)
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Spell correction and autocomplete
	CorrectionThreshold   float64 `env:"SIMILARITY_CORRECTION_THRESHOLD" envDefault:"0.4"`
	AutocompleteThreshold float64 `env:"AUTOCOMPLETE_SIMILARITY_THRESHOLD" envDefault:"0.3"`

	// Cache TTLs (seconds)
	SearchResultsCacheTTL int `env:"SEARCH_RESULTS_CACHE_TTL" envDefault:"60"`
	FacetsCacheTTL        int `env:"FACETS_CACHE_TTL" envDefault:"300"`
	CorrectionCacheTTL    int `env:"CORRECTION_CACHE_TTL" envDefault:"3600"`
	PreferencesCacheTTL   int `env:"PREFERENCES_CACHE_TTL" envDefault:"900"`

	// Personalization signal weights. By convention they sum to 1.0 but
	// this is not enforced.
	PurchasesWeight float64 `env:"PERSONALIZATION_PURCHASES_WEIGHT" envDefault:"0.5"`
	SearchesWeight  float64 `env:"PERSONALIZATION_SEARCHES_WEIGHT" envDefault:"0.3"`
	ViewsWeight     float64 `env:"PERSONALIZATION_VIEWS_WEIGHT" envDefault:"0.2"`

	// Personalization boosts (percentage points) and inclusion threshold.
	CategoryBoostPercent int `env:"PERSONALIZATION_CATEGORY_BOOST" envDefault:"15"`
	BrandBoostPercent    int `env:"PERSONALIZATION_BRAND_BOOST" envDefault:"10"`
	MinInteractions      int `env:"PERSONALIZATION_MIN_INTERACTIONS" envDefault:"3"`

	// Ranking boost increments (additive on the base relevance score).
	FeaturedBoost float64 `env:"RANKING_FEATURED_BOOST" envDefault:"0.2"`
	InStockBoost  float64 `env:"RANKING_IN_STOCK_BOOST" envDefault:"0.1"`
	RatingBoost   float64 `env:"RANKING_RATING_BOOST" envDefault:"0.1"`

	// Per-path timeouts. Facets, correction, and personalization degrade to
	// defaults on timeout; the primary search timeout is a hard failure.
	PrimarySearchTimeout   time.Duration `env:"PRIMARY_SEARCH_TIMEOUT" envDefault:"5s"`
	FacetsTimeout          time.Duration `env:"FACETS_TIMEOUT" envDefault:"2s"`
	CorrectionTimeout      time.Duration `env:"CORRECTION_TIMEOUT" envDefault:"2s"`
	PersonalizationTimeout time.Duration `env:"PERSONALIZATION_TIMEOUT" envDefault:"1s"`

	// Personalization batch recalculation
	BatchSize int `env:"PERSONALIZATION_BATCH_SIZE" envDefault:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CorrectionThreshold < 0 || c.CorrectionThreshold > 1 {
		return fmt.Errorf("invalid correction threshold: %f", c.CorrectionThreshold)
	}
	if c.AutocompleteThreshold < 0 || c.AutocompleteThreshold > 1 {
		return fmt.Errorf("invalid autocomplete threshold: %f", c.AutocompleteThreshold)
	}
	if c.MinInteractions < 0 {
		return fmt.Errorf("invalid min interactions: %d", c.MinInteractions)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("invalid batch size: %d", c.BatchSize)
	}
	return nil
}

// SearchResultsTTL returns the search results cache TTL as a duration.
func (c *Config) SearchResultsTTL() time.Duration {
	return time.Duration(c.SearchResultsCacheTTL) * time.Second
}

// FacetsTTL returns the facets cache TTL as a duration.
func (c *Config) FacetsTTL() time.Duration {
	return time.Duration(c.FacetsCacheTTL) * time.Second
}

// CorrectionTTL returns the spell correction cache TTL as a duration.
func (c *Config) CorrectionTTL() time.Duration {
	return time.Duration(c.CorrectionCacheTTL) * time.Second
}

// PreferencesTTL returns the preference profile cache TTL as a duration.
func (c *Config) PreferencesTTL() time.Duration {
	return time.Duration(c.PreferencesCacheTTL) * time.Second
}
