// Package personalization derives per-user preference profiles from
// behavioral logs (purchases, searches, views) and serves them to the search
// path with caching.
package personalization

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/repository"
	apperrors "github.com/velora/search-service/pkg/errors"
)

// Config holds the scoring weights, boost magnitudes and cache TTL for the
// preference model.
type Config struct {
	// Interaction weights. Purchases count most, views least.
	PurchasesWeight float64
	SearchesWeight  float64
	ViewsWeight     float64

	// Boost percentages attached to every favorite entry. The search path
	// converts these to additive score increments.
	CategoryBoostPercent int
	BrandBoostPercent    int

	// MinInteractions is the raw interaction count below which a category or
	// brand is ignored as noise.
	MinInteractions int

	CacheTTL time.Duration
}

// Model calculates, stores and serves preference profiles.
type Model struct {
	behavior repository.BehaviorRepository
	prefs    repository.PreferenceRepository
	store    cache.Store
	cfg      Config
	logger   *slog.Logger
}

// New creates a Model.
func New(behavior repository.BehaviorRepository, prefs repository.PreferenceRepository, store cache.Store, cfg Config, logger *slog.Logger) *Model {
	return &Model{behavior: behavior, prefs: prefs, store: store, cfg: cfg, logger: logger}
}

// Calculate recomputes the user's preference profile from behavioral logs,
// persists it, and invalidates the cached copy. The stored profile is a full
// overwrite; a user whose activity dried up loses stale favorites.
func (m *Model) Calculate(ctx context.Context, userID string) (*domain.PreferenceProfile, error) {
	categoryStats, err := m.behavior.CategoryStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	brandStats, err := m.behavior.BrandStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	terms, err := m.behavior.TopSearchTerms(ctx, userID, domain.MaxTopSearchTerms)
	if err != nil {
		return nil, err
	}
	locale, err := m.behavior.UserLocale(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &domain.PreferenceProfile{
		UserID:         userID,
		Categories:     m.rank(categoryStats, domain.MaxFavoriteCategories, m.cfg.CategoryBoostPercent),
		Brands:         m.rank(brandStats, domain.MaxFavoriteBrands, m.cfg.BrandBoostPercent),
		TopSearchTerms: terms,
		Locale:         locale,
		CalculatedAt:   time.Now().UTC(),
	}

	if err := m.prefs.Save(ctx, profile); err != nil {
		return nil, err
	}

	m.Invalidate(ctx, userID)

	m.logger.InfoContext(ctx, "preference profile calculated",
		slog.String("user_id", userID),
		slog.Int("categories", len(profile.Categories)),
		slog.Int("brands", len(profile.Brands)),
	)

	return profile, nil
}

// rank scores interaction stats, drops entries below the minimum interaction
// count, normalizes scores to 0-100 against the user's own maximum, and keeps
// the top max entries.
func (m *Model) rank(stats []repository.InteractionStat, max int, boostPercent int) []domain.PreferenceEntry {
	type scored struct {
		stat  repository.InteractionStat
		score float64
	}

	candidates := make([]scored, 0, len(stats))
	var top float64
	for _, s := range stats {
		if s.Total() < m.cfg.MinInteractions {
			continue
		}
		score := float64(s.Purchases)*m.cfg.PurchasesWeight +
			float64(s.Searches)*m.cfg.SearchesWeight +
			float64(s.Views)*m.cfg.ViewsWeight
		if score <= 0 {
			continue
		}
		if score > top {
			top = score
		}
		candidates = append(candidates, scored{stat: s, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].stat.ID < candidates[j].stat.ID
	})

	if len(candidates) > max {
		candidates = candidates[:max]
	}

	entries := make([]domain.PreferenceEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, domain.PreferenceEntry{
			ID:           c.stat.ID,
			Name:         c.stat.Name,
			Score:        c.score / top * 100,
			BoostPercent: boostPercent,
		})
	}
	return entries
}

// Profile returns the user's preference profile, preferring the cache, then
// the stored profile. A user with no stored profile yields nil without error.
func (m *Model) Profile(ctx context.Context, userID string) (*domain.PreferenceProfile, error) {
	if userID == "" {
		return nil, nil
	}

	profile, _, err := cache.GetOrCompute(ctx, m.store, m.logger,
		cache.PreferencesKey(userID), m.cfg.CacheTTL,
		func(ctx context.Context) (*domain.PreferenceProfile, error) {
			p, err := m.prefs.Get(ctx, userID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return nil, nil
				}
				return nil, err
			}
			return p, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Invalidate drops the cached profile for the user. Cache failures are only
// logged; the entry expires on its own.
func (m *Model) Invalidate(ctx context.Context, userID string) {
	if err := m.store.Delete(ctx, cache.PreferencesKey(userID)); err != nil {
		m.logger.WarnContext(ctx, "preference cache invalidation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}
