package elasticsearch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/ranking"
)

func testEngine() *Engine {
	return &Engine{
		indexName: DefaultIndexName,
		boosts:    ranking.Config{FeaturedBoost: 0.2, InStockBoost: 0.1, RatingBoost: 0.1},
	}
}

func TestBuildSearchQuery_TextQueryUsesMultiMatch(t *testing.T) {
	e := testEngine()

	esQuery := e.buildSearchQuery(&domain.SearchQuery{Query: "sneakers", Page: 1, PerPage: 20})

	fs := esQuery["query"].(map[string]any)["function_score"].(map[string]any)
	boolQuery := fs["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)

	mm := must[0].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "sneakers", mm["query"])
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Contains(t, mm["fields"], "name^3")

	assert.Equal(t, 0, esQuery["from"])
	assert.Equal(t, 20, esQuery["size"])
}

func TestBuildSearchQuery_EmptyQueryMatchesAll(t *testing.T) {
	e := testEngine()

	esQuery := e.buildSearchQuery(&domain.SearchQuery{Page: 2, PerPage: 10})

	fs := esQuery["query"].(map[string]any)["function_score"].(map[string]any)
	boolQuery := fs["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	_, ok := must[0].(map[string]any)["match_all"]
	assert.True(t, ok)
	assert.Equal(t, 10, esQuery["from"])
}

func TestBuildSearchQuery_BoostFunctionsAreAdditive(t *testing.T) {
	e := testEngine()

	esQuery := e.buildSearchQuery(&domain.SearchQuery{Page: 1, PerPage: 20})

	fs := esQuery["query"].(map[string]any)["function_score"].(map[string]any)
	assert.Equal(t, "sum", fs["score_mode"])
	assert.Equal(t, "sum", fs["boost_mode"])

	functions := fs["functions"].([]any)
	require.Len(t, functions, 3)
	assert.Equal(t, 0.2, functions[0].(map[string]any)["weight"])
	assert.Equal(t, 0.1, functions[1].(map[string]any)["weight"])

	fvf := functions[2].(map[string]any)["field_value_factor"].(map[string]any)
	assert.Equal(t, "rating", fvf["field"])
	assert.InDelta(t, 0.02, fvf["factor"].(float64), 1e-9)
}

func TestBuildFilters_AlwaysRestrictsToApproved(t *testing.T) {
	e := testEngine()

	filters := e.buildFilters(&domain.SearchQuery{})
	require.Len(t, filters, 1)
	term := filters[0].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, domain.StatusApproved, term["status"])
}

func TestBuildFilters_TermsAndPriceRange(t *testing.T) {
	e := testEngine()

	min := int64(1000)
	max := int64(5000)
	filters := e.buildFilters(&domain.SearchQuery{
		CategoryIDs: []string{"c1"},
		Colors:      []string{"Black"},
		MinPrice:    &min,
		MaxPrice:    &max,
	})
	require.Len(t, filters, 4)

	colorTerms := filters[2].(map[string]any)["terms"].(map[string]any)
	assert.Equal(t, []string{"black"}, colorTerms["colors"])

	priceRange := filters[3].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	assert.Equal(t, min, priceRange["gte"])
	assert.Equal(t, max, priceRange["lte"])
}

func TestBuildSort_EveryVariantTieBreaksOnID(t *testing.T) {
	e := testEngine()

	for _, sortBy := range append(domain.ValidSortOptions(), "") {
		clause := e.buildSort(sortBy)
		require.NotEmpty(t, clause, "sort %q", sortBy)
		last := clause[len(clause)-1].(map[string]any)
		assert.Equal(t, "asc", last["id"], "sort %q", sortBy)
	}
}

func TestToDocument_FlattensVariants(t *testing.T) {
	p := &domain.Product{
		ID:     "p1",
		Name:   "Running Shoes",
		Status: domain.StatusApproved,
		Variants: []domain.Variant{
			{ID: "v1", Color: "Black", Size: "42", Stock: 3},
			{ID: "v2", Color: "black", Size: "44", Stock: 0},
			{ID: "v3", Color: "White", Size: "42", Stock: 1},
		},
	}

	doc := toDocument(p)
	assert.Equal(t, []string{"black", "white"}, doc.Colors)
	assert.Equal(t, []string{"42", "44"}, doc.Sizes)
	assert.True(t, doc.InStock)
}

func TestToDocument_OutOfStock(t *testing.T) {
	p := &domain.Product{ID: "p1", Name: "Sold Out", Stock: 0}
	assert.False(t, toDocument(p).InStock)
}

func TestDecodeError_ExtractsReason(t *testing.T) {
	e := testEngine()

	body := strings.NewReader(`{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`)
	msg := e.decodeError(body, "404 Not Found")
	assert.Equal(t, "index_not_found_exception: no such index", msg)
}

func TestDecodeError_FallsBackToStatus(t *testing.T) {
	e := testEngine()

	msg := e.decodeError(strings.NewReader("not json"), "502 Bad Gateway")
	assert.Equal(t, "unexpected status 502 Bad Gateway", msg)
}
