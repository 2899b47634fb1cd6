package service

import (
	"context"
	"log/slog"

	"github.com/velora/search-service/internal/domain"
)

// Suggester is an optional backend-side autocomplete capability. The
// Elasticsearch backend implements it; the vocabulary store is the fallback.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error)
}

// WithSuggester attaches a backend suggester tried before the vocabulary
// store.
func (s *SearchService) WithSuggester(sg Suggester) *SearchService {
	s.suggester = sg
	return s
}

// Suggest returns autocomplete candidates for prefix. A configured backend
// suggester is preferred; on failure the vocabulary store serves the request.
func (s *SearchService) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	if s.suggester != nil {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.CorrectionTimeout)
		suggestions, err := s.suggester.Suggest(cctx, prefix, limit)
		cancel()
		if err == nil {
			return suggestions, nil
		}
		s.logger.WarnContext(ctx, "backend suggest failed, falling back to vocabulary",
			slog.String("error", err.Error()),
		)
	}

	return s.corrector.Suggest(ctx, prefix, limit)
}
