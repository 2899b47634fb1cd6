// Package service hosts the search orchestrator: the top-level entry point
// that coordinates cache lookups, backend selection, spell correction, facet
// aggregation and personalization into a single response.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/correction"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/engine"
	"github.com/velora/search-service/internal/facet"
	"github.com/velora/search-service/internal/personalization"
	"github.com/velora/search-service/internal/ranking"
)

// Config holds the orchestrator's cache TTL, per-path timeouts, and the boost
// percentages applied to favorite categories and brands.
type Config struct {
	SearchTTL time.Duration

	// PrimaryTimeout bounds the search call itself; exceeding it is a hard
	// failure for the request. The other timeouts bound non-critical paths
	// that degrade to defaults.
	PrimaryTimeout         time.Duration
	FacetsTimeout          time.Duration
	CorrectionTimeout      time.Duration
	PersonalizationTimeout time.Duration

	CategoryBoostPercent int
	BrandBoostPercent    int
}

// SearchService orchestrates a search request across the active backend, the
// facet aggregator, the corrector and the preference model.
type SearchService struct {
	primary  engine.Backend
	external engine.Backend
	breaker  *gobreaker.CircuitBreaker[*domain.SearchResult]
	ranker   *ranking.Ranker

	facets    *facet.Aggregator
	corrector *correction.Corrector
	prefs     *personalization.Model
	suggester Suggester

	store  cache.Store
	cfg    Config
	logger *slog.Logger
}

// NewSearchService creates the orchestrator. external may be nil, in which
// case every search runs against the primary backend. When external is set, a
// circuit breaker guards it and trips to the primary backend transparently.
func NewSearchService(
	primary, external engine.Backend,
	ranker *ranking.Ranker,
	facets *facet.Aggregator,
	corrector *correction.Corrector,
	prefs *personalization.Model,
	store cache.Store,
	cfg Config,
	logger *slog.Logger,
) *SearchService {
	s := &SearchService{
		primary:   primary,
		external:  external,
		ranker:    ranker,
		facets:    facets,
		corrector: corrector,
		prefs:     prefs,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}

	if external != nil {
		s.breaker = gobreaker.NewCircuitBreaker[*domain.SearchResult](gobreaker.Settings{
			Name:    "search-" + external.Name(),
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < 5 {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("search backend circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			},
		})
	}

	return s
}

// Search executes the full search pipeline for one request: cache lookup,
// concurrent backend search and facet aggregation, zero-result spell
// correction with a re-search, personalization, and a cache write of the
// assembled response. Empty result sets are cached like any other.
func (s *SearchService) Search(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResponse, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	key := cache.SearchKey(q)

	if resp := s.cachedResponse(ctx, key); resp != nil {
		searchCacheHits.Inc()
		resp.Metadata.CacheHit = true
		return resp, nil
	}
	searchCacheMisses.Inc()

	var (
		result      *domain.SearchResult
		usedPrimary bool
		boosts      *ranking.Boosts
		summary     *domain.FacetSummary
		facetsMs    int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, facetsMs = s.computeFacets(gctx, q)
		return nil
	})
	g.Go(func() error {
		boosts = s.personalizationBoosts(gctx, q.UserID)
		var err error
		result, usedPrimary, err = s.executeSearch(gctx, q, boosts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var corrected *domain.Correction
	if result.Total == 0 && q.Query != "" {
		corrected = s.tryCorrection(ctx, q.Query)
	}
	if corrected != nil {
		cq := q.WithQuery(corrected.CorrectedQuery)
		rerun, rerunPrimary, err := s.executeSearch(ctx, cq, boosts)
		if err != nil {
			s.logger.WarnContext(ctx, "corrected re-search failed, keeping original result",
				slog.String("corrected_query", corrected.CorrectedQuery),
				slog.String("error", err.Error()),
			)
			corrected = nil
		} else {
			searchCorrections.Inc()
			result, usedPrimary = rerun, rerunPrimary
			// Facets follow the effective query.
			summary, facetsMs = s.computeFacets(ctx, cq)
		}
	}

	resp := &domain.SearchResponse{
		Items:            result.Products,
		TotalCount:       result.Total,
		Page:             result.Page,
		PageSize:         result.PerPage,
		HasMore:          result.Page*result.PerPage < result.Total,
		AvailableFilters: summary,
		Metadata: domain.SearchMetadata{
			UsedPrimaryBackend:    usedPrimary,
			ExecutionTimeMs:       time.Since(start).Milliseconds(),
			FacetsExecutionTimeMs: facetsMs,
			Personalized:          boosts != nil,
		},
	}
	if resp.Items == nil {
		resp.Items = []domain.Product{}
	}
	if corrected != nil {
		resp.OriginalQuery = corrected.OriginalQuery
		resp.CorrectedQuery = corrected.CorrectedQuery
	}

	s.writeCache(ctx, key, resp)

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", q.Query),
		slog.Int("total", resp.TotalCount),
		slog.Bool("primary_backend", usedPrimary),
		slog.Bool("personalized", resp.Metadata.Personalized),
		slog.Int64("took_ms", resp.Metadata.ExecutionTimeMs),
	)

	return resp, nil
}

// executeSearch runs the query against the external backend when one is
// configured and healthy, falling back to the primary backend on any failure.
// The returned bool reports whether the primary backend served the request.
func (s *SearchService) executeSearch(ctx context.Context, q *domain.SearchQuery, boosts *ranking.Boosts) (*domain.SearchResult, bool, error) {
	if s.external != nil {
		result, err := s.breaker.Execute(func() (*domain.SearchResult, error) {
			ectx, cancel := context.WithTimeout(ctx, s.cfg.PrimaryTimeout)
			defer cancel()
			return s.external.Search(ectx, q, boosts)
		})
		if err == nil {
			searchRequests.WithLabelValues(s.external.Name()).Inc()
			if boosts != nil && !s.external.SupportsQueryBoosts() {
				s.ranker.ApplyPersonalization(result.Products, boosts)
			}
			return result, false, nil
		}

		searchBackendFallbacks.Inc()
		s.logger.WarnContext(ctx, "external search backend failed, falling back to primary",
			slog.String("backend", s.external.Name()),
			slog.String("error", err.Error()),
		)
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PrimaryTimeout)
	defer cancel()

	result, err := s.primary.Search(pctx, q, boosts)
	if err != nil {
		return nil, false, err
	}

	searchRequests.WithLabelValues(s.primary.Name()).Inc()
	if boosts != nil && !s.primary.SupportsQueryBoosts() {
		s.ranker.ApplyPersonalization(result.Products, boosts)
	}
	return result, true, nil
}

// computeFacets aggregates the available filters, degrading to an empty
// summary on failure or timeout.
func (s *SearchService) computeFacets(ctx context.Context, q *domain.SearchQuery) (*domain.FacetSummary, int64) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FacetsTimeout)
	defer cancel()

	start := time.Now()
	summary, err := s.facets.Compute(fctx, q)
	if err != nil {
		s.logger.WarnContext(ctx, "facet aggregation failed, returning empty filters",
			slog.String("error", err.Error()),
		)
		return domain.EmptyFacetSummary(), time.Since(start).Milliseconds()
	}
	return summary, time.Since(start).Milliseconds()
}

// personalizationBoosts fetches the user's preference profile and converts it
// to score boosts. Any failure or timeout degrades to no personalization.
func (s *SearchService) personalizationBoosts(ctx context.Context, userID string) *ranking.Boosts {
	if userID == "" {
		return nil
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.PersonalizationTimeout)
	defer cancel()

	profile, err := s.prefs.Profile(pctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "preference profile fetch failed, skipping personalization",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return ranking.BoostsFromProfile(profile, s.cfg.CategoryBoostPercent, s.cfg.BrandBoostPercent)
}

// tryCorrection asks the corrector for a spelling fix, degrading to none on
// failure or timeout.
func (s *SearchService) tryCorrection(ctx context.Context, term string) *domain.Correction {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CorrectionTimeout)
	defer cancel()

	corrected, err := s.corrector.Correct(cctx, term)
	if err != nil {
		s.logger.WarnContext(ctx, "spell correction failed, keeping original query",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return corrected
}

// cachedResponse returns the cached response for key, or nil on a miss or any
// cache failure.
func (s *SearchService) cachedResponse(ctx context.Context, key string) *domain.SearchResponse {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WarnContext(ctx, "search cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.WarnContext(ctx, "search cache entry unmarshal failed",
			slog.String("key", key),
		)
		return nil
	}
	return &resp
}

// writeCache stores the assembled response. Failures are logged only.
func (s *SearchService) writeCache(ctx context.Context, key string, resp *domain.SearchResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.WarnContext(ctx, "search response marshal failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.store.Set(ctx, key, data, s.cfg.SearchTTL); err != nil {
		s.logger.WarnContext(ctx, "search cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
