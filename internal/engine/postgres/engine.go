// Package postgres implements the primary search backend: full-text ranking
// and boost application happen inside the catalog store itself.
package postgres

import (
	"context"
	"sort"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/ranking"
	"github.com/velora/search-service/internal/repository"
)

// Engine is the PostgreSQL-backed primary search backend.
type Engine struct {
	catalog repository.CatalogRepository
	cfg     ranking.Config
	ping    func(ctx context.Context) error
}

// New creates the primary backend. ping may be nil, in which case the
// backend always reports healthy (useful in tests).
func New(catalog repository.CatalogRepository, cfg ranking.Config, ping func(ctx context.Context) error) *Engine {
	return &Engine{catalog: catalog, cfg: cfg, ping: ping}
}

// Search executes the primary full-text search. Business and personalization
// boosts are folded into the database-side score expression, so the returned
// page is already in final order.
func (e *Engine) Search(ctx context.Context, q *domain.SearchQuery, boosts *ranking.Boosts) (*domain.SearchResult, error) {
	params := &repository.BoostParams{
		FeaturedBoost: e.cfg.FeaturedBoost,
		InStockBoost:  e.cfg.InStockBoost,
		RatingBoost:   e.cfg.RatingBoost,
	}

	if boosts != nil {
		params.CategoryBoost = boosts.CategoryBoost
		params.BrandBoost = boosts.BrandBoost
		params.FavoriteCategoryIDs = keys(boosts.CategoryIDs)
		params.FavoriteBrandIDs = keys(boosts.BrandIDs)
	}

	return e.catalog.SearchProducts(ctx, q, params)
}

// SupportsQueryBoosts always returns true: boosts are part of the SQL score.
func (e *Engine) SupportsQueryBoosts() bool {
	return true
}

// Ping checks catalog store connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if e.ping == nil {
		return nil
	}
	return e.ping(ctx)
}

// Name identifies the backend in logs and metadata.
func (e *Engine) Name() string {
	return "postgres"
}

// keys returns the set members sorted so generated SQL arguments are stable
// across identical requests.
func keys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
