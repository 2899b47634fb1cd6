package domain

import (
	"time"
)

// Limits on how many favorites a preference profile keeps.
const (
	MaxFavoriteCategories = 5
	MaxFavoriteBrands     = 3
	MaxTopSearchTerms     = 10
)

// PreferenceEntry is one favorite category or brand. Score is normalized to
// 0–100 relative to the user's maximum; BoostPercent comes from configuration
// and is independent of the score.
type PreferenceEntry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	BoostPercent int     `json:"boost_percent"`
}

// PreferenceProfile is the per-user aggregate derived from behavioral logs.
// It is recomputed by the batch job and fully overwritten on each run.
type PreferenceProfile struct {
	UserID         string            `json:"user_id"`
	Categories     []PreferenceEntry `json:"categories"`
	Brands         []PreferenceEntry `json:"brands"`
	TopSearchTerms []string          `json:"top_search_terms,omitempty"`
	Locale         string            `json:"locale,omitempty"`
	CalculatedAt   time.Time         `json:"calculated_at"`
}

// IsEmpty reports whether the profile carries no favorites at all.
func (p *PreferenceProfile) IsEmpty() bool {
	return len(p.Categories) == 0 && len(p.Brands) == 0
}

// FavoriteCategoryIDs returns the set of favorite category ids.
func (p *PreferenceProfile) FavoriteCategoryIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(p.Categories))
	for _, c := range p.Categories {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// FavoriteBrandIDs returns the set of favorite brand ids.
func (p *PreferenceProfile) FavoriteBrandIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(p.Brands))
	for _, b := range p.Brands {
		ids[b.ID] = struct{}{}
	}
	return ids
}
