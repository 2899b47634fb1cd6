package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velora/search-service/internal/repository"
	"github.com/velora/search-service/pkg/database"
	apperrors "github.com/velora/search-service/pkg/errors"
)

// BehaviorRepository implements repository.BehaviorRepository over the
// behavioral log tables (order_items, search_events, view_events), each
// joined through the catalog item to its category or brand.
type BehaviorRepository struct {
	pool database.DBTX
}

// NewBehaviorRepository creates a new PostgreSQL-backed behavior repository.
func NewBehaviorRepository(pool database.DBTX) *BehaviorRepository {
	return &BehaviorRepository{pool: pool}
}

// statsQuery aggregates the three behavioral signals for one dimension.
// The dimension column (category_id or brand_id) and the lookup table are
// interpolated; both values come from this package, never from input.
const statsQuery = `
	SELECT d.id, d.name,
	       COALESCE(sum(s.purchases), 0)::int,
	       COALESCE(sum(s.searches), 0)::int,
	       COALESCE(sum(s.views), 0)::int
	FROM (
		SELECT p.%[1]s AS id, count(*) AS purchases, 0 AS searches, 0 AS views
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.user_id = $1
		GROUP BY p.%[1]s
		UNION ALL
		SELECT p.%[1]s, 0, count(*), 0
		FROM search_events se
		JOIN products p ON p.id = se.product_id
		WHERE se.user_id = $1
		GROUP BY p.%[1]s
		UNION ALL
		SELECT p.%[1]s, 0, 0, count(*)
		FROM view_events ve
		JOIN products p ON p.id = ve.product_id
		WHERE ve.user_id = $1
		GROUP BY p.%[1]s
	) s
	JOIN %[2]s d ON d.id = s.id
	GROUP BY d.id, d.name
	ORDER BY d.id`

func (r *BehaviorRepository) stats(ctx context.Context, userID, column, table string) ([]repository.InteractionStat, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(statsQuery, column, table), userID)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("behavioral store", fmt.Errorf("%s stats: %w", table, err))
	}
	defer rows.Close()

	var stats []repository.InteractionStat
	for rows.Next() {
		var s repository.InteractionStat
		if err := rows.Scan(&s.ID, &s.Name, &s.Purchases, &s.Searches, &s.Views); err != nil {
			return nil, fmt.Errorf("scan %s stat: %w", table, err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CategoryStats returns per-category interaction aggregates for the user.
func (r *BehaviorRepository) CategoryStats(ctx context.Context, userID string) ([]repository.InteractionStat, error) {
	return r.stats(ctx, userID, "category_id", "categories")
}

// BrandStats returns per-brand interaction aggregates for the user.
func (r *BehaviorRepository) BrandStats(ctx context.Context, userID string) ([]repository.InteractionStat, error) {
	return r.stats(ctx, userID, "brand_id", "brands")
}

// TopSearchTerms returns the user's most frequent search terms.
func (r *BehaviorRepository) TopSearchTerms(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, `
		SELECT term
		FROM search_events
		WHERE user_id = $1 AND term <> ''
		GROUP BY term
		ORDER BY count(*) DESC, term ASC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("behavioral store", fmt.Errorf("top search terms: %w", err))
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan search term: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// UserLocale returns the user's stored locale preference, or empty when the
// user is unknown.
func (r *BehaviorRepository) UserLocale(ctx context.Context, userID string) (string, error) {
	var locale string
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(locale, '') FROM users WHERE id = $1`, userID).Scan(&locale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.DataSourceUnavailable("behavioral store", fmt.Errorf("user locale: %w", err))
	}
	return locale, nil
}
