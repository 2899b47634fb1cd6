package facet

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/repository"
)

type stubCatalog struct {
	summary *domain.FacetSummary
	err     error
	calls   int
}

func (s *stubCatalog) SearchProducts(_ context.Context, _ *domain.SearchQuery, _ *repository.BoostParams) (*domain.SearchResult, error) {
	panic("not used")
}

func (s *stubCatalog) FacetCounts(_ context.Context, _ *domain.SearchQuery) (*domain.FacetSummary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	// Return a copy so the aggregator's in-place sort does not leak into
	// subsequent calls.
	cp := *s.summary
	return &cp, nil
}

func newTestAggregator(t *testing.T, catalog *stubCatalog) *Aggregator {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(catalog, cache.NewRedisStore(client), 5*time.Minute, slog.New(slog.DiscardHandler))
}

func TestAggregator_Compute_SortsBucketsByCount(t *testing.T) {
	ctx := context.Background()
	catalog := &stubCatalog{summary: &domain.FacetSummary{
		Categories: []domain.FacetBucket{
			{ID: "c2", Name: "Bags", Count: 1},
			{ID: "c1", Name: "Shoes", Count: 5},
		},
		Brands: []domain.FacetBucket{
			{ID: "b1", Name: "Zeta", Count: 2},
			{ID: "b2", Name: "Acme", Count: 2},
		},
		Colors: []domain.ValueBucket{
			{Value: "red", Count: 1},
			{Value: "black", Count: 3},
		},
	}}
	agg := newTestAggregator(t, catalog)

	summary, err := agg.Compute(ctx, &domain.SearchQuery{Query: "shoes"})
	require.NoError(t, err)

	assert.Equal(t, "c1", summary.Categories[0].ID)
	assert.Equal(t, "c2", summary.Categories[1].ID)
	// Equal counts tie-break on name.
	assert.Equal(t, "Acme", summary.Brands[0].Name)
	assert.Equal(t, "black", summary.Colors[0].Value)
}

func TestAggregator_Compute_SizeOrdering(t *testing.T) {
	ctx := context.Background()
	catalog := &stubCatalog{summary: &domain.FacetSummary{
		Sizes: []domain.SizeBucket{
			{Value: "XL", Count: 1},
			{Value: "Oversize", Count: 1},
			{Value: "38", Count: 1},
			{Value: "S", Count: 1},
			{Value: "M", Count: 9},
			{Value: "42", Count: 1},
			{Value: "XS", Count: 1},
		},
	}}
	agg := newTestAggregator(t, catalog)

	summary, err := agg.Compute(ctx, &domain.SearchQuery{})
	require.NoError(t, err)

	values := make([]string, 0, len(summary.Sizes))
	for _, s := range summary.Sizes {
		values = append(values, s.Value)
	}
	assert.Equal(t, []string{"38", "42", "XS", "S", "M", "XL", "Oversize"}, values)
}

func TestAggregator_Compute_CachesSummary(t *testing.T) {
	ctx := context.Background()
	catalog := &stubCatalog{summary: &domain.FacetSummary{
		Categories: []domain.FacetBucket{{ID: "c1", Name: "Shoes", Count: 5}},
	}}
	agg := newTestAggregator(t, catalog)

	q := &domain.SearchQuery{Query: "shoes", Page: 1, PerPage: 20}
	_, err := agg.Compute(ctx, q)
	require.NoError(t, err)

	// Pagination changes must not bypass the cached summary.
	q2 := &domain.SearchQuery{Query: "shoes", Page: 4, PerPage: 50}
	_, err = agg.Compute(ctx, q2)
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.calls)
}

func TestAggregator_Compute_PropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	catalog := &stubCatalog{err: errors.New("catalog store down")}
	agg := newTestAggregator(t, catalog)

	_, err := agg.Compute(ctx, &domain.SearchQuery{})
	assert.Error(t, err)
}

func TestSizeLess_Properties(t *testing.T) {
	values := []string{"Tall", "M", "40", "XS", "4XL", "36", "Regular", "XXL"}
	sort.Slice(values, func(i, j int) bool { return sizeLess(values[i], values[j]) })

	assert.Equal(t, []string{"36", "40", "XS", "M", "XXL", "4XL", "Regular", "Tall"}, values)
}
