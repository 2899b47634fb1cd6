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

// VocabularyRepository implements repository.VocabularyRepository using
// pg_trgm similarity over product, category, and tag names.
type VocabularyRepository struct {
	pool database.DBTX
}

// NewVocabularyRepository creates a new PostgreSQL-backed vocabulary repository.
func NewVocabularyRepository(pool database.DBTX) *VocabularyRepository {
	return &VocabularyRepository{pool: pool}
}

// vocabularyQuery scores the given term against all three vocabulary sources.
// Only approved products contribute names.
const vocabularyQuery = `
	SELECT term, source, score FROM (
		SELECT p.name AS term, 'product' AS source, similarity(p.name, $1) AS score
		FROM products p
		WHERE p.status = 'approved'
		UNION ALL
		SELECT c.name, 'category', similarity(c.name, $1)
		FROM categories c
		UNION ALL
		SELECT t.name, 'tag', similarity(t.name, $1)
		FROM tags t
	) vocab
	WHERE score >= $2
	ORDER BY score DESC, term ASC`

// BestMatch returns the single highest-scoring vocabulary term at or above
// threshold, or nil when nothing qualifies.
func (r *VocabularyRepository) BestMatch(ctx context.Context, term string, threshold float64) (*repository.VocabularyMatch, error) {
	row := r.pool.QueryRow(ctx, vocabularyQuery+" LIMIT 1", term, threshold)

	var m repository.VocabularyMatch
	if err := row.Scan(&m.Term, &m.Source, &m.Score); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.DataSourceUnavailable("vocabulary store", fmt.Errorf("best match: %w", err))
	}
	return &m, nil
}

// Suggest returns up to limit vocabulary terms similar to prefix.
func (r *VocabularyRepository) Suggest(ctx context.Context, prefix string, threshold float64, limit int) ([]repository.VocabularyMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, vocabularyQuery+" LIMIT $3", prefix, threshold, limit)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("vocabulary store", fmt.Errorf("suggest: %w", err))
	}
	defer rows.Close()

	var matches []repository.VocabularyMatch
	for rows.Next() {
		var m repository.VocabularyMatch
		if err := rows.Scan(&m.Term, &m.Source, &m.Score); err != nil {
			return nil, fmt.Errorf("scan vocabulary match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
