package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/repository"
	"github.com/velora/search-service/pkg/database"
	apperrors "github.com/velora/search-service/pkg/errors"
)

// facet dimensions, used for own-dimension exclusion when building filters.
const (
	dimNone     = ""
	dimCategory = "category"
	dimBrand    = "brand"
	dimColor    = "color"
	dimSize     = "size"
	dimPrice    = "price"
)

// trigramFallbackThreshold is the minimum name similarity for a product to
// match when the full-text query itself finds nothing in a row.
const trigramFallbackThreshold = 0.3

// CatalogRepository implements repository.CatalogRepository using PostgreSQL
// with tsvector ranking and pg_trgm similarity.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// argBuilder collects positional query arguments.
type argBuilder struct {
	args []any
}

func (b *argBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// filterConditions renders the filter context into SQL conditions over the
// products table, skipping the excluded dimension's own filter.
func filterConditions(q *domain.SearchQuery, exclude string, b *argBuilder) []string {
	conditions := []string{"p.status = 'approved'"}

	if q.Query != "" {
		qp := b.bind(q.Query)
		conditions = append(conditions, fmt.Sprintf(
			"(p.search_vector @@ websearch_to_tsquery('simple', %s) OR similarity(p.name, %s) >= %s)",
			qp, qp, b.bind(trigramFallbackThreshold),
		))
	}

	if exclude != dimCategory && len(q.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.category_id = ANY(%s)", b.bind(q.CategoryIDs)))
	}

	if exclude != dimBrand && len(q.BrandIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.brand_id = ANY(%s)", b.bind(q.BrandIDs)))
	}

	if exclude != dimPrice {
		if q.MinPrice != nil {
			conditions = append(conditions, fmt.Sprintf("p.price >= %s", b.bind(*q.MinPrice)))
		}
		if q.MaxPrice != nil {
			conditions = append(conditions, fmt.Sprintf("p.price <= %s", b.bind(*q.MaxPrice)))
		}
	}

	if exclude != dimColor && len(q.Colors) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_variants fv WHERE fv.product_id = p.id AND fv.color = ANY(%s))",
			b.bind(q.Colors),
		))
	}

	if exclude != dimSize && len(q.Sizes) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_variants fv WHERE fv.product_id = p.id AND fv.size = ANY(%s))",
			b.bind(q.Sizes),
		))
	}

	return conditions
}

// scoreExpression renders the ranking score: full-text rank (with a trigram
// fallback for near-miss names) plus additive business and personalization
// boosts. Additive increments keep tie-breaking predictable.
func scoreExpression(q *domain.SearchQuery, boosts *repository.BoostParams, b *argBuilder) string {
	var terms []string

	if q.Query != "" {
		qp := b.bind(q.Query)
		terms = append(terms, fmt.Sprintf(
			"GREATEST(ts_rank(p.search_vector, websearch_to_tsquery('simple', %s)), similarity(p.name, %s))",
			qp, qp,
		))
	} else {
		terms = append(terms, "0")
	}

	terms = append(terms,
		fmt.Sprintf("CASE WHEN p.featured THEN %s ELSE 0 END", b.bind(boosts.FeaturedBoost)),
		fmt.Sprintf("CASE WHEN p.stock > 0 THEN %s ELSE 0 END", b.bind(boosts.InStockBoost)),
		fmt.Sprintf("(p.rating / 5.0) * %s", b.bind(boosts.RatingBoost)),
	)

	if len(boosts.FavoriteCategoryIDs) > 0 {
		terms = append(terms, fmt.Sprintf(
			"CASE WHEN p.category_id = ANY(%s) THEN %s ELSE 0 END",
			b.bind(boosts.FavoriteCategoryIDs), b.bind(boosts.CategoryBoost),
		))
	}
	if len(boosts.FavoriteBrandIDs) > 0 {
		terms = append(terms, fmt.Sprintf(
			"CASE WHEN p.brand_id = ANY(%s) THEN %s ELSE 0 END",
			b.bind(boosts.FavoriteBrandIDs), b.bind(boosts.BrandBoost),
		))
	}

	return strings.Join(terms, " + ")
}

// orderClause maps the sort option onto a deterministic ORDER BY. Every
// variant tie-breaks on p.id so pagination is stable across identical
// requests.
func orderClause(sortBy string) string {
	switch sortBy {
	case domain.SortPriceAsc:
		return "p.price ASC, p.id ASC"
	case domain.SortPriceDesc:
		return "p.price DESC, p.id ASC"
	case domain.SortNewest:
		return "p.created_at DESC, p.id ASC"
	case domain.SortRating:
		return "p.rating DESC, p.id ASC"
	default:
		return "score DESC, p.id ASC"
	}
}

// SearchProducts executes the primary search with scoring and ordering done
// in the database.
func (r *CatalogRepository) SearchProducts(ctx context.Context, q *domain.SearchQuery, boosts *repository.BoostParams) (*domain.SearchResult, error) {
	start := time.Now()

	if boosts == nil {
		boosts = &repository.BoostParams{}
	}

	b := &argBuilder{}
	score := scoreExpression(q, boosts, b)
	conditions := filterConditions(q, dimNone, b)

	limit := q.PerPage
	offset := (q.Page - 1) * q.PerPage

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.slug, p.description,
		       p.category_id, c.name AS category_name,
		       p.brand_id, b.name AS brand_name,
		       p.price, p.currency, p.stock, p.rating, p.featured, p.status, p.image_url,
		       p.created_at, p.updated_at,
		       %s AS score,
		       count(*) OVER() AS total_count
		FROM products p
		JOIN categories c ON c.id = p.category_id
		JOIN brands b ON b.id = p.brand_id
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s`,
		score,
		strings.Join(conditions, " AND "),
		orderClause(q.SortBy),
		b.bind(limit), b.bind(offset),
	)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("catalog store", fmt.Errorf("search products: %w", err))
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description,
			&p.CategoryID, &p.CategoryName,
			&p.BrandID, &p.BrandName,
			&p.Price, &p.Currency, &p.Stock, &p.Rating, &p.Featured, &p.Status, &p.ImageURL,
			&p.CreatedAt, &p.UpdatedAt,
			&p.Score,
			&totalCount,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DataSourceUnavailable("catalog store", fmt.Errorf("search products: %w", err))
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}

	if products == nil {
		products = []domain.Product{}
	}

	return &domain.SearchResult{
		Products: products,
		Total:    totalCount,
		Page:     q.Page,
		PerPage:  q.PerPage,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}

// attachVariants loads the variants for one result page in a single query.
func (r *CatalogRepository) attachVariants(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, color, size, stock
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, id`, ids)
	if err != nil {
		return fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v         domain.Variant
			productID string
		)
		if err := rows.Scan(&v.ID, &productID, &v.Color, &v.Size, &v.Stock); err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		if i, ok := index[productID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	return rows.Err()
}

// FacetCounts aggregates every facet dimension in one round-trip. Each
// dimension's sub-query applies the active filters minus that dimension's
// own filter, so the UI never presents a dead-end option.
func (r *CatalogRepository) FacetCounts(ctx context.Context, q *domain.SearchQuery) (*domain.FacetSummary, error) {
	b := &argBuilder{}

	catWhere := strings.Join(filterConditions(q, dimCategory, b), " AND ")
	brandWhere := strings.Join(filterConditions(q, dimBrand, b), " AND ")
	colorWhere := strings.Join(filterConditions(q, dimColor, b), " AND ")
	sizeWhere := strings.Join(filterConditions(q, dimSize, b), " AND ")
	priceWhere := strings.Join(filterConditions(q, dimPrice, b), " AND ")

	query := fmt.Sprintf(`
		SELECT 'category' AS dim, p.category_id AS key, c.name AS label, count(DISTINCT p.id) AS cnt, 0::bigint AS min_price, 0::bigint AS max_price
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE %s
		GROUP BY p.category_id, c.name
		UNION ALL
		SELECT 'brand', p.brand_id, b.name, count(DISTINCT p.id), 0, 0
		FROM products p JOIN brands b ON b.id = p.brand_id
		WHERE %s
		GROUP BY p.brand_id, b.name
		UNION ALL
		SELECT 'color', v.color, '', count(DISTINCT p.id), 0, 0
		FROM products p JOIN product_variants v ON v.product_id = p.id
		WHERE %s AND v.color <> ''
		GROUP BY v.color
		UNION ALL
		SELECT 'size', v.size, '', count(DISTINCT p.id), 0, 0
		FROM products p JOIN product_variants v ON v.product_id = p.id
		WHERE %s AND v.size <> ''
		GROUP BY v.size
		UNION ALL
		SELECT 'price', '', '', 0, COALESCE(min(p.price), 0), COALESCE(max(p.price), 0)
		FROM products p
		WHERE %s`,
		catWhere, brandWhere, colorWhere, sizeWhere, priceWhere,
	)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("catalog store", fmt.Errorf("facet counts: %w", err))
	}
	defer rows.Close()

	summary := domain.EmptyFacetSummary()

	for rows.Next() {
		var (
			dim, key, label    string
			count              int
			minPrice, maxPrice int64
		)
		if err := rows.Scan(&dim, &key, &label, &count, &minPrice, &maxPrice); err != nil {
			return nil, fmt.Errorf("scan facet row: %w", err)
		}

		switch dim {
		case dimCategory:
			summary.Categories = append(summary.Categories, domain.FacetBucket{ID: key, Name: label, Count: count})
		case dimBrand:
			summary.Brands = append(summary.Brands, domain.FacetBucket{ID: key, Name: label, Count: count})
		case dimColor:
			summary.Colors = append(summary.Colors, domain.ValueBucket{Value: key, Count: count})
		case dimSize:
			summary.Sizes = append(summary.Sizes, domain.SizeBucket{Value: key, Count: count})
		case dimPrice:
			summary.PriceRange = domain.PriceRange{Min: minPrice, Max: maxPrice}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DataSourceUnavailable("catalog store", fmt.Errorf("facet counts: %w", err))
	}

	return summary, nil
}
