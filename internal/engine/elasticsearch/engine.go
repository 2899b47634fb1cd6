// Package elasticsearch implements the external search backend. Business
// boosts (featured, stock, rating) are expressed as function_score functions;
// personalization boosts are applied by the caller after the page comes back,
// since user preferences are not part of the index.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/ranking"
)

// Engine is the Elasticsearch-backed search backend.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	boosts    ranking.Config
	logger    *slog.Logger
}

// document is the indexed representation of a product. Variant colors and
// sizes are flattened into keyword arrays, and stock is precomputed into a
// boolean so the boost function stays a filter.
type document struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	CategoryID   string           `json:"category_id"`
	CategoryName string           `json:"category_name"`
	BrandID      string           `json:"brand_id"`
	BrandName    string           `json:"brand_name"`
	Price        int64            `json:"price"`
	Currency     string           `json:"currency"`
	Status       string           `json:"status"`
	Featured     bool             `json:"featured"`
	InStock      bool             `json:"in_stock"`
	Rating       float64          `json:"rating"`
	Colors       []string         `json:"colors,omitempty"`
	Sizes        []string         `json:"sizes,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	ImageURL     string           `json:"image_url,omitempty"`
	Variants     []domain.Variant `json:"variants,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// esSearchResponse decodes Elasticsearch search responses.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float64  `json:"_score"`
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse decodes Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse decodes Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine connected to the given URL and ensures
// the products index exists, creating it with the mapping if necessary. If
// indexName is empty, DefaultIndexName is used.
func New(esURL, indexName string, boosts ranking.Config, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		boosts:    boosts,
		logger:    logger,
	}

	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// SupportsQueryBoosts reports false: business boosts run in function_score,
// but personalization boosts need user data the index does not carry.
func (e *Engine) SupportsQueryBoosts() bool {
	return false
}

// Name identifies the backend in logs and metadata.
func (e *Engine) Name() string {
	return "elasticsearch"
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the products index exists and creates it if not.
func (e *Engine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", e.indexName)
		return nil
	}

	mapping := buildIndexMapping()
	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("create index: %s", e.decodeError(res.Body, res.Status()))
	}

	e.logger.Info("elasticsearch index created", "index", e.indexName)
	return nil
}

// Index adds or updates a single product in the index.
func (e *Engine) Index(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(toDocument(product))
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(product.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index: %s", e.decodeError(res.Body, res.Status()))
	}

	e.logger.Debug("indexed product", "id", product.ID, "name", product.Name)
	return nil
}

// Delete removes a product from the index by ID. A 404 is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete: %s", e.decodeError(res.Body, res.Status()))
	}

	e.logger.Debug("deleted product", "id", id)
	return nil
}

// BulkIndex adds or updates multiple products using the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i := range products {
		action := map[string]any{
			"index": map[string]any{
				"_index": e.indexName,
				"_id":    products[i].ID,
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(toDocument(&products[i])); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch bulk index: %s", e.decodeError(res.Body, res.Status()))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.Info("bulk indexed products", "count", len(products))
	return nil
}

// Search executes a query against Elasticsearch. The boosts argument is
// ignored here; callers apply personalization after the page is returned.
func (e *Engine) Search(ctx context.Context, q *domain.SearchQuery, _ *ranking.Boosts) (*domain.SearchResult, error) {
	esQuery := e.buildSearchQuery(q)

	data, err := json.Marshal(esQuery)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search: %s", e.decodeError(res.Body, res.Status()))
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	products := make([]domain.Product, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		p := fromDocument(&hit.Source)
		p.Score = hit.Score
		products = append(products, p)
	}

	return &domain.SearchResult{
		Products: products,
		Total:    esResp.Hits.Total.Value,
		Page:     q.Page,
		PerPage:  q.PerPage,
		TookMs:   int64(esResp.Took),
	}, nil
}

// buildSearchQuery constructs the query DSL. Business boosts are additive
// function_score functions so scores stay comparable with the primary
// backend's score expression.
func (e *Engine) buildSearchQuery(q *domain.SearchQuery) map[string]any {
	var mustClause any
	if q.Query != "" {
		mustClause = map[string]any{
			"multi_match": map[string]any{
				"query":         q.Query,
				"fields":        []string{"name^3", "name.autocomplete^2", "description", "category_name", "brand_name", "tags"},
				"type":          "best_fields",
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		}
	} else {
		mustClause = map[string]any{
			"match_all": map[string]any{},
		}
	}

	boolQuery := map[string]any{
		"must": []any{mustClause},
	}
	if filters := e.buildFilters(q); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	scored := map[string]any{
		"function_score": map[string]any{
			"query": map[string]any{"bool": boolQuery},
			"functions": []any{
				map[string]any{
					"filter": map[string]any{"term": map[string]any{"featured": true}},
					"weight": e.boosts.FeaturedBoost,
				},
				map[string]any{
					"filter": map[string]any{"term": map[string]any{"in_stock": true}},
					"weight": e.boosts.InStockBoost,
				},
				map[string]any{
					"field_value_factor": map[string]any{
						"field":   "rating",
						"factor":  e.boosts.RatingBoost / 5.0,
						"missing": 0,
					},
				},
			},
			"score_mode": "sum",
			"boost_mode": "sum",
		},
	}

	esQuery := map[string]any{
		"query":            scored,
		"from":             (q.Page - 1) * q.PerPage,
		"size":             q.PerPage,
		"track_total_hits": true,
	}

	if sortClause := e.buildSort(q.SortBy); sortClause != nil {
		esQuery["sort"] = sortClause
	}

	return esQuery
}

// buildFilters constructs the filter clauses for the query.
func (e *Engine) buildFilters(q *domain.SearchQuery) []any {
	filters := []any{
		map[string]any{"term": map[string]any{"status": domain.StatusApproved}},
	}

	if len(q.CategoryIDs) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"category_id": q.CategoryIDs},
		})
	}
	if len(q.BrandIDs) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"brand_id": q.BrandIDs},
		})
	}
	if len(q.Colors) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"colors": lowered(q.Colors)},
		})
	}
	if len(q.Sizes) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"sizes": q.Sizes},
		})
	}

	if q.MinPrice != nil || q.MaxPrice != nil {
		rangeFilter := map[string]any{}
		if q.MinPrice != nil {
			rangeFilter["gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			rangeFilter["lte"] = *q.MaxPrice
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"price": rangeFilter},
		})
	}

	return filters
}

// buildSort constructs the sort clause. Every non-relevance sort tie-breaks
// on id ascending so pagination stays stable.
func (e *Engine) buildSort(sortBy string) []any {
	switch sortBy {
	case domain.SortPriceAsc:
		return []any{
			map[string]any{"price": "asc"},
			map[string]any{"id": "asc"},
		}
	case domain.SortPriceDesc:
		return []any{
			map[string]any{"price": "desc"},
			map[string]any{"id": "asc"},
		}
	case domain.SortNewest:
		return []any{
			map[string]any{"created_at": "desc"},
			map[string]any{"id": "asc"},
		}
	case domain.SortRating:
		return []any{
			map[string]any{"rating": "desc"},
			map[string]any{"id": "asc"},
		}
	default:
		return []any{
			map[string]any{"_score": "desc"},
			map[string]any{"id": "asc"},
		}
	}
}

// DeleteIndex removes the entire index. Intended for tests and administrative
// use; a 404 is treated as success.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete index: %s", e.decodeError(res.Body, res.Status()))
	}

	e.logger.Info("elasticsearch index deleted", "index", e.indexName)
	return nil
}

// decodeError extracts a readable message from an error response body,
// falling back to the HTTP status line.
func (e *Engine) decodeError(body io.Reader, status string) string {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Sprintf("%s: %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Sprintf("unexpected status %s", status)
}

// toDocument flattens a product into its indexed form.
func toDocument(p *domain.Product) *document {
	doc := &document{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		BrandID:      p.BrandID,
		BrandName:    p.BrandName,
		Price:        p.Price,
		Currency:     p.Currency,
		Status:       p.Status,
		Featured:     p.Featured,
		InStock:      p.InStock(),
		Rating:       p.Rating,
		Tags:         p.Tags,
		ImageURL:     p.ImageURL,
		Variants:     p.Variants,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}

	seenColors := make(map[string]struct{})
	seenSizes := make(map[string]struct{})
	for _, v := range p.Variants {
		if c := strings.ToLower(v.Color); c != "" {
			if _, ok := seenColors[c]; !ok {
				seenColors[c] = struct{}{}
				doc.Colors = append(doc.Colors, c)
			}
		}
		if v.Size != "" {
			if _, ok := seenSizes[v.Size]; !ok {
				seenSizes[v.Size] = struct{}{}
				doc.Sizes = append(doc.Sizes, v.Size)
			}
		}
	}

	return doc
}

// fromDocument rebuilds the product view from an indexed document.
func fromDocument(d *document) domain.Product {
	return domain.Product{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		CategoryID:   d.CategoryID,
		CategoryName: d.CategoryName,
		BrandID:      d.BrandID,
		BrandName:    d.BrandName,
		Price:        d.Price,
		Currency:     d.Currency,
		Status:       d.Status,
		Featured:     d.Featured,
		Rating:       d.Rating,
		Tags:         d.Tags,
		ImageURL:     d.ImageURL,
		Variants:     d.Variants,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
