// Package facet computes the available filter values for a search's filter
// context, with counts that exclude each dimension's own active filter.
package facet

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/repository"
)

// sizeOrder maps the conventional apparel sizes to their display positions.
// Purely numeric sizes sort ascending before these; unknown labels sort
// alphabetically after them.
var sizeOrder = map[string]int{
	"XXS":  0,
	"XS":   1,
	"S":    2,
	"M":    3,
	"L":    4,
	"XL":   5,
	"XXL":  6,
	"XXXL": 7,
	"3XL":  7,
	"4XL":  8,
}

// Aggregator computes facet summaries with caching.
type Aggregator struct {
	catalog repository.CatalogRepository
	store   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
}

// New creates an Aggregator.
func New(catalog repository.CatalogRepository, store cache.Store, ttl time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{catalog: catalog, store: store, ttl: ttl, logger: logger}
}

// Compute returns the facet summary for the query's filter context. The cache
// key ignores pagination and user identity since neither affects counts.
func (a *Aggregator) Compute(ctx context.Context, q *domain.SearchQuery) (*domain.FacetSummary, error) {
	summary, _, err := cache.GetOrCompute(ctx, a.store, a.logger,
		cache.FacetsKey(q), a.ttl,
		func(ctx context.Context) (*domain.FacetSummary, error) {
			s, err := a.catalog.FacetCounts(ctx, q)
			if err != nil {
				return nil, err
			}
			sortSummary(s)
			return s, nil
		},
	)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return domain.EmptyFacetSummary(), nil
	}
	return summary, nil
}

// sortSummary orders every dimension for presentation: categories, brands and
// colors by count descending with name as tie-break, sizes by garment size
// convention.
func sortSummary(s *domain.FacetSummary) {
	sort.Slice(s.Categories, func(i, j int) bool {
		if s.Categories[i].Count != s.Categories[j].Count {
			return s.Categories[i].Count > s.Categories[j].Count
		}
		return s.Categories[i].Name < s.Categories[j].Name
	})
	sort.Slice(s.Brands, func(i, j int) bool {
		if s.Brands[i].Count != s.Brands[j].Count {
			return s.Brands[i].Count > s.Brands[j].Count
		}
		return s.Brands[i].Name < s.Brands[j].Name
	})
	sort.Slice(s.Colors, func(i, j int) bool {
		if s.Colors[i].Count != s.Colors[j].Count {
			return s.Colors[i].Count > s.Colors[j].Count
		}
		return s.Colors[i].Value < s.Colors[j].Value
	})
	sort.Slice(s.Sizes, func(i, j int) bool {
		return sizeLess(s.Sizes[i].Value, s.Sizes[j].Value)
	})
}

// sizeLess orders size labels: numeric sizes ascending first, then the
// conventional letter sizes, then anything else alphabetically.
func sizeLess(a, b string) bool {
	na, aNum := strconv.Atoi(a)
	nb, bNum := strconv.Atoi(b)
	if aNum == nil && bNum == nil {
		return na < nb
	}
	if aNum == nil {
		return true
	}
	if bNum == nil {
		return false
	}

	oa, aKnown := sizeOrder[strings.ToUpper(a)]
	ob, bKnown := sizeOrder[strings.ToUpper(b)]
	if aKnown && bKnown {
		if oa != ob {
			return oa < ob
		}
		return a < b
	}
	if aKnown {
		return true
	}
	if bKnown {
		return false
	}
	return a < b
}
