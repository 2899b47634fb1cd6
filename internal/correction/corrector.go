// Package correction turns misspelled queries into vocabulary terms using
// trigram similarity against product, category and tag names.
package correction

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/repository"
)

// Config holds the correction thresholds and cache TTLs.
type Config struct {
	// CorrectionThreshold is the minimum similarity for a full-query
	// correction to be offered.
	CorrectionThreshold float64
	// SuggestThreshold is the minimum similarity for autocomplete
	// candidates. It is lower than CorrectionThreshold because partial
	// input produces weaker trigram overlap.
	SuggestThreshold float64
	CacheTTL         time.Duration
}

// Corrector resolves misspelled search terms against the vocabulary store.
type Corrector struct {
	vocab  repository.VocabularyRepository
	store  cache.Store
	cfg    Config
	logger *slog.Logger
}

// New creates a Corrector.
func New(vocab repository.VocabularyRepository, store cache.Store, cfg Config, logger *slog.Logger) *Corrector {
	return &Corrector{vocab: vocab, store: store, cfg: cfg, logger: logger}
}

// Correct returns the best spelling correction for term, or nil when no
// candidate clears the threshold or the best candidate is the input itself.
// Both outcomes are cached under the lowercased term, so repeated misspellings
// and repeated correct spellings skip the vocabulary scan alike.
func (c *Corrector) Correct(ctx context.Context, term string) (*domain.Correction, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < 2 {
		return nil, nil
	}

	lower := strings.ToLower(term)

	cached, _, err := cache.GetOrCompute(ctx, c.store, c.logger,
		cache.CorrectionKey(lower), c.cfg.CacheTTL,
		func(ctx context.Context) (*domain.Correction, error) {
			return c.lookup(ctx, lower)
		},
	)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, nil
	}

	// The cache is keyed on the lowercased term; echo the caller's original.
	out := *cached
	out.OriginalQuery = term
	return &out, nil
}

func (c *Corrector) lookup(ctx context.Context, lower string) (*domain.Correction, error) {
	match, err := c.vocab.BestMatch(ctx, lower, c.cfg.CorrectionThreshold)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}

	// The query already spells a vocabulary term; nothing to correct.
	if strings.ToLower(match.Term) == lower {
		return nil, nil
	}

	c.logger.DebugContext(ctx, "query correction found",
		slog.String("term", lower),
		slog.String("corrected", match.Term),
		slog.Float64("confidence", match.Score),
	)

	return &domain.Correction{
		OriginalQuery:  lower,
		CorrectedQuery: match.Term,
		Confidence:     match.Score,
		Source:         match.Source,
	}, nil
}

// Suggest returns up to limit autocomplete candidates for prefix, cached per
// prefix and limit.
func (c *Corrector) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if len([]rune(prefix)) < 2 {
		return []domain.Suggestion{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	lower := strings.ToLower(prefix)

	suggestions, _, err := cache.GetOrCompute(ctx, c.store, c.logger,
		cache.SuggestKey(lower, limit), c.cfg.CacheTTL,
		func(ctx context.Context) ([]domain.Suggestion, error) {
			matches, err := c.vocab.Suggest(ctx, lower, c.cfg.SuggestThreshold, limit)
			if err != nil {
				return nil, err
			}
			out := make([]domain.Suggestion, 0, len(matches))
			for _, m := range matches {
				out = append(out, domain.Suggestion{
					Term:   m.Term,
					Score:  m.Score,
					Source: m.Source,
				})
			}
			return out, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}
