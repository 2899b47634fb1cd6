package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/ranking"
)

func testRankingConfig() ranking.Config {
	return ranking.Config{
		FeaturedBoost: 0.2,
		InStockBoost:  0.1,
		RatingBoost:   0.1,
	}
}

func seedCatalog(t *testing.T, e *Engine) {
	t.Helper()

	products := []domain.Product{
		{
			ID:          "p1",
			Name:        "Samsung Galaxy Smartphone",
			Description: "Android smartphone with OLED display",
			CategoryID:  "cat-phones",
			BrandID:     "brand-samsung",
			Price:       79900,
			Stock:       5,
			Rating:      4.5,
			Status:      domain.StatusApproved,
			Tags:        []string{"android", "5g"},
			CreatedAt:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          "p2",
			Name:        "Leather Wallet",
			Description: "Slim leather wallet",
			CategoryID:  "cat-accessories",
			BrandID:     "brand-acme",
			Price:       2900,
			Stock:       20,
			Rating:      4.0,
			Status:      domain.StatusApproved,
			Variants: []domain.Variant{
				{ID: "v1", Color: "Brown", Stock: 20},
			},
			CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          "p3",
			Name:        "Running Shoes",
			Description: "Lightweight running shoes",
			CategoryID:  "cat-shoes",
			BrandID:     "brand-acme",
			Price:       8900,
			Rating:      3.5,
			Status:      domain.StatusApproved,
			Variants: []domain.Variant{
				{ID: "v2", Color: "Black", Size: "42", Stock: 3},
				{ID: "v3", Color: "White", Size: "44", Stock: 0},
			},
			CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:         "p4",
			Name:       "Prototype Smartphone",
			CategoryID: "cat-phones",
			BrandID:    "brand-samsung",
			Price:      99900,
			Status:     domain.StatusPending,
			CreatedAt:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, e.BulkIndex(context.Background(), products))
}

func baseQuery(query string) *domain.SearchQuery {
	return &domain.SearchQuery{Query: query, Page: 1, PerPage: 20}
}

func TestEngine_Search_MatchesWholeWords(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	result, err := e.Search(context.Background(), baseQuery("smartphone"), nil)
	require.NoError(t, err)

	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p1", result.Products[0].ID)
}

func TestEngine_Search_MisspelledQueryFindsNothing(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	// Word-token matching: a truncated term is not a prefix hit.
	result, err := e.Search(context.Background(), baseQuery("smartphon"), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Products)
}

func TestEngine_Search_MatchesTags(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	result, err := e.Search(context.Background(), baseQuery("android"), nil)
	require.NoError(t, err)

	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p1", result.Products[0].ID)
}

func TestEngine_Search_AllTokensMustMatch(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	result, err := e.Search(context.Background(), baseQuery("leather smartphone"), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
}

func TestEngine_Search_ExcludesUnapprovedProducts(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	result, err := e.Search(context.Background(), baseQuery("prototype"), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Total)
}

func TestEngine_Search_EmptyQueryReturnsAllApproved(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	result, err := e.Search(context.Background(), baseQuery(""), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
}

func TestEngine_Search_FiltersByCategoryAndBrand(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	q := baseQuery("")
	q.BrandIDs = []string{"brand-acme"}
	result, err := e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)

	q.CategoryIDs = []string{"cat-shoes"}
	result, err = e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p3", result.Products[0].ID)
}

func TestEngine_Search_FiltersByPriceRange(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	min := int64(5000)
	max := int64(90000)
	q := baseQuery("")
	q.MinPrice = &min
	q.MaxPrice = &max

	result, err := e.Search(context.Background(), q, nil)
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	for _, p := range result.Products {
		assert.GreaterOrEqual(t, p.Price, min)
		assert.LessOrEqual(t, p.Price, max)
	}
}

func TestEngine_Search_FiltersByVariantAttributes(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	q := baseQuery("")
	q.Colors = []string{"black"}
	result, err := e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p3", result.Products[0].ID)

	q = baseQuery("")
	q.Sizes = []string{"44"}
	result, err = e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "p3", result.Products[0].ID)
}

func TestEngine_Search_SortsByPrice(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	q := baseQuery("")
	q.SortBy = domain.SortPriceAsc
	result, err := e.Search(context.Background(), q, nil)
	require.NoError(t, err)

	require.Len(t, result.Products, 3)
	assert.Equal(t, "p2", result.Products[0].ID)
	assert.Equal(t, "p3", result.Products[1].ID)
	assert.Equal(t, "p1", result.Products[2].ID)

	q.SortBy = domain.SortPriceDesc
	result, err = e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", result.Products[0].ID)
}

func TestEngine_Search_SortsByNewest(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	q := baseQuery("")
	q.SortBy = domain.SortNewest
	result, err := e.Search(context.Background(), q, nil)
	require.NoError(t, err)

	require.Len(t, result.Products, 3)
	assert.Equal(t, "p3", result.Products[0].ID)
	assert.Equal(t, "p2", result.Products[1].ID)
	assert.Equal(t, "p1", result.Products[2].ID)
}

func TestEngine_Search_PersonalizationBoostsReorder(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	q := baseQuery("")
	boosts := &ranking.Boosts{
		CategoryIDs:   map[string]struct{}{"cat-shoes": {}},
		CategoryBoost: 0.5,
	}
	result, err := e.Search(context.Background(), q, boosts)
	require.NoError(t, err)

	require.Len(t, result.Products, 3)
	assert.Equal(t, "p3", result.Products[0].ID)
}

func TestEngine_Search_Pagination(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	q := baseQuery("")
	q.SortBy = domain.SortPriceAsc
	q.PerPage = 2

	result, err := e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Products, 2)
	assert.Equal(t, "p2", result.Products[0].ID)

	q.Page = 2
	result, err = e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "p3", result.Products[0].ID)

	q.Page = 5
	result, err = e.Search(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Products)
}

func TestEngine_DeleteRemovesProduct(t *testing.T) {
	e := New(testRankingConfig())
	seedCatalog(t, e)

	require.NoError(t, e.Delete(context.Background(), "p1"))

	result, err := e.Search(context.Background(), baseQuery("smartphone"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}
