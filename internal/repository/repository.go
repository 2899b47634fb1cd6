// Package repository defines the read interfaces the search engine consumes
// and the single write interface it owns (preference profiles). The catalog
// itself is never mutated from here.
package repository

import (
	"context"

	"github.com/velora/search-service/internal/domain"
)

// BoostParams carries the additive score increments applied during the
// primary search. Personalization fields are empty when no user profile is
// available.
type BoostParams struct {
	FeaturedBoost float64
	InStockBoost  float64
	RatingBoost   float64

	CategoryBoost       float64
	BrandBoost          float64
	FavoriteCategoryIDs []string
	FavoriteBrandIDs    []string
}

// CatalogRepository is the read-only query interface over the product store.
type CatalogRepository interface {
	// SearchProducts executes the primary full-text search restricted by the
	// filter context, scoring and ordering results in the database.
	SearchProducts(ctx context.Context, q *domain.SearchQuery, boosts *BoostParams) (*domain.SearchResult, error)

	// FacetCounts aggregates the available filter values for the given
	// context in a single round-trip. Buckets are returned unsorted; the
	// facet aggregator applies dimension-specific ordering.
	FacetCounts(ctx context.Context, q *domain.SearchQuery) (*domain.FacetSummary, error)
}

// VocabularyMatch is a scored term from one of the vocabulary sources.
type VocabularyMatch struct {
	Term   string
	Source string
	Score  float64
}

// VocabularyRepository looks up known terms (product, category, and tag
// names) by trigram similarity.
type VocabularyRepository interface {
	// BestMatch returns the single highest-scoring vocabulary term with a
	// similarity of at least threshold, or nil when nothing qualifies.
	BestMatch(ctx context.Context, term string, threshold float64) (*VocabularyMatch, error)

	// Suggest returns up to limit vocabulary terms similar to prefix.
	Suggest(ctx context.Context, prefix string, threshold float64, limit int) ([]VocabularyMatch, error)
}

// InteractionStat aggregates one user's behavioral signals for a single
// category or brand.
type InteractionStat struct {
	ID        string
	Name      string
	Purchases int
	Searches  int
	Views     int
}

// Total returns the raw interaction count used by the minimum-interaction
// filter.
func (s InteractionStat) Total() int {
	return s.Purchases + s.Searches + s.Views
}

// BehaviorRepository is the read-only query interface over behavioral logs.
type BehaviorRepository interface {
	CategoryStats(ctx context.Context, userID string) ([]InteractionStat, error)
	BrandStats(ctx context.Context, userID string) ([]InteractionStat, error)
	TopSearchTerms(ctx context.Context, userID string, limit int) ([]string, error)
	UserLocale(ctx context.Context, userID string) (string, error)
}

// PreferenceRepository stores derived preference profiles. Save is a full
// overwrite per user; there is no partial mutation.
type PreferenceRepository interface {
	Save(ctx context.Context, profile *domain.PreferenceProfile) error
	Get(ctx context.Context, userID string) (*domain.PreferenceProfile, error)

	// ListUserIDs pages user ids with keyset pagination (ids greater than
	// afterID, ascending). With onlyUninitialized, users that already have a
	// profile are skipped.
	ListUserIDs(ctx context.Context, onlyUninitialized bool, afterID string, limit int) ([]string, error)
}
