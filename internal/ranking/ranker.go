// Package ranking computes the final ordering score for search results:
// base textual relevance plus additive business and personalization boosts.
// Everything here is pure and deterministic; identical inputs always produce
// the identical ordering.
package ranking

import (
	"sort"

	"github.com/velora/search-service/internal/domain"
)

// Config holds the business boost increments. Increments are additive, not
// multiplicative, so tie-breaking stays predictable.
type Config struct {
	FeaturedBoost float64
	InStockBoost  float64
	RatingBoost   float64
}

// Boosts carries a user's personalization boosts derived from their
// preference profile. A nil *Boosts means no personalization.
type Boosts struct {
	CategoryIDs   map[string]struct{}
	BrandIDs      map[string]struct{}
	CategoryBoost float64
	BrandBoost    float64
}

// BoostsFromProfile converts a preference profile into ranking boosts. The
// boost magnitude comes from configuration (percentage points over 100), not
// from the profile scores: scores only decide which categories and brands
// qualify as favorites.
func BoostsFromProfile(p *domain.PreferenceProfile, categoryPercent, brandPercent int) *Boosts {
	if p == nil || p.IsEmpty() {
		return nil
	}
	return &Boosts{
		CategoryIDs:   p.FavoriteCategoryIDs(),
		BrandIDs:      p.FavoriteBrandIDs(),
		CategoryBoost: float64(categoryPercent) / 100,
		BrandBoost:    float64(brandPercent) / 100,
	}
}

// Ranker scores and orders products.
type Ranker struct {
	cfg Config
}

// New creates a ranker with the given boost configuration.
func New(cfg Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Score returns the total ordering score for a product: its base relevance
// score plus business boosts plus personalization boosts.
func (r *Ranker) Score(p *domain.Product, boosts *Boosts) float64 {
	score := p.Score

	if p.Featured {
		score += r.cfg.FeaturedBoost
	}
	if p.InStock() {
		score += r.cfg.InStockBoost
	}
	score += (p.Rating / 5.0) * r.cfg.RatingBoost

	score += personalizationBoost(p, boosts)

	return score
}

// Rank computes total scores for all products and sorts them in place by
// descending score with a stable tie-break on product ID.
func (r *Ranker) Rank(products []domain.Product, boosts *Boosts) {
	for i := range products {
		products[i].Score = r.Score(&products[i], boosts)
	}
	sortByScore(products)
}

// ApplyPersonalization re-scores a result page that was already ranked by an
// external engine. Only the personalization increments are added on top of
// the engine's score, then the page is re-sorted. Used when the backend
// cannot inject custom boost terms itself.
func (r *Ranker) ApplyPersonalization(products []domain.Product, boosts *Boosts) {
	if boosts == nil {
		return
	}
	for i := range products {
		products[i].Score += personalizationBoost(&products[i], boosts)
	}
	sortByScore(products)
}

func personalizationBoost(p *domain.Product, boosts *Boosts) float64 {
	if boosts == nil {
		return 0
	}
	var boost float64
	if _, ok := boosts.CategoryIDs[p.CategoryID]; ok {
		boost += boosts.CategoryBoost
	}
	if _, ok := boosts.BrandIDs[p.BrandID]; ok {
		boost += boosts.BrandBoost
	}
	return boost
}

func sortByScore(products []domain.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].Score != products[j].Score {
			return products[i].Score > products[j].Score
		}
		return products[i].ID < products[j].ID
	})
}
