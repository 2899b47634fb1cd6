package domain

import (
	"strings"

	apperrors "github.com/velora/search-service/pkg/errors"
)

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{SortRelevance, SortPriceAsc, SortPriceDesc, SortNewest, SortRating}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// SearchQuery is the per-request filter context. It is never persisted.
type SearchQuery struct {
	Query       string   `json:"query"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	BrandIDs    []string `json:"brand_ids,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	MinPrice    *int64   `json:"min_price,omitempty"`
	MaxPrice    *int64   `json:"max_price,omitempty"`
	SortBy      string   `json:"sort_by"`
	Page        int      `json:"page"`
	PerPage     int      `json:"per_page"`
	UserID      string   `json:"user_id,omitempty"`
	Locale      string   `json:"locale,omitempty"`
}

// Normalize trims the query string and applies pagination and sort defaults.
func (q *SearchQuery) Normalize() {
	q.Query = strings.TrimSpace(q.Query)
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = 20
	}
	if q.PerPage > 100 {
		q.PerPage = 100
	}
	if q.SortBy == "" {
		q.SortBy = SortRelevance
	}
}

// Validate checks the filter context for client errors.
func (q *SearchQuery) Validate() error {
	if q.MinPrice != nil && *q.MinPrice < 0 {
		return apperrors.InvalidInput("min_price must not be negative")
	}
	if q.MaxPrice != nil && *q.MaxPrice < 0 {
		return apperrors.InvalidInput("max_price must not be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return apperrors.InvalidInput("min_price must not exceed max_price")
	}
	if q.SortBy != "" && !IsValidSort(q.SortBy) {
		return apperrors.InvalidInput("sort must be one of: " + strings.Join(ValidSortOptions(), ", "))
	}
	return nil
}

// WithQuery returns a copy of the filter context with a different query term,
// used when re-running a search with a corrected term.
func (q *SearchQuery) WithQuery(term string) *SearchQuery {
	cp := *q
	cp.Query = term
	return &cp
}

// SearchResult holds the paginated result of a single backend search.
type SearchResult struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
	TookMs   int64     `json:"took_ms"`
}

// SearchMetadata describes how a search response was produced.
type SearchMetadata struct {
	UsedPrimaryBackend    bool  `json:"used_primary_backend"`
	ExecutionTimeMs       int64 `json:"execution_time_ms"`
	FacetsExecutionTimeMs int64 `json:"facets_execution_time_ms"`
	CacheHit              bool  `json:"cache_hit"`
	Personalized          bool  `json:"personalized"`
}

// SearchResponse is the unified payload returned to the HTTP layer.
type SearchResponse struct {
	Items            []Product      `json:"items"`
	TotalCount       int            `json:"total_count"`
	Page             int            `json:"page"`
	PageSize         int            `json:"page_size"`
	HasMore          bool           `json:"has_more"`
	AvailableFilters *FacetSummary  `json:"available_filters"`
	CorrectedQuery   string         `json:"corrected_query,omitempty"`
	OriginalQuery    string         `json:"original_query,omitempty"`
	Metadata         SearchMetadata `json:"search_metadata"`
}
