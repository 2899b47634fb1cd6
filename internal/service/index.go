package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/velora/search-service/internal/cache"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/engine"
	apperrors "github.com/velora/search-service/pkg/errors"
)

// IndexService keeps secondary indexes in sync with catalog changes and
// invalidates derived cache entries when the catalog moves under them.
type IndexService struct {
	indexers []engine.Indexer
	store    cache.Store
	logger   *slog.Logger
}

// NewIndexService creates an IndexService over zero or more indexers. With no
// indexers it still performs cache invalidation, which the primary backend
// needs since it queries the catalog store directly.
func NewIndexService(indexers []engine.Indexer, store cache.Store, logger *slog.Logger) *IndexService {
	return &IndexService{indexers: indexers, store: store, logger: logger}
}

// IndexProduct upserts a product into every indexer and invalidates derived
// caches.
func (s *IndexService) IndexProduct(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		return apperrors.InvalidInput("product id is required")
	}
	if product.Name == "" {
		return apperrors.InvalidInput("product name is required")
	}

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	for _, idx := range s.indexers {
		if err := idx.Index(ctx, product); err != nil {
			return err
		}
	}

	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "product indexed",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)
	return nil
}

// DeleteProduct removes a product from every indexer and invalidates derived
// caches.
func (s *IndexService) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}

	for _, idx := range s.indexers {
		if err := idx.Delete(ctx, id); err != nil {
			return err
		}
	}

	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "product deleted from index",
		slog.String("product_id", id),
	)
	return nil
}

// BulkIndex upserts multiple products into every indexer, then invalidates
// derived caches once.
func (s *IndexService) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range products {
		if products[i].CreatedAt.IsZero() {
			products[i].CreatedAt = now
		}
		products[i].UpdatedAt = now
	}

	for _, idx := range s.indexers {
		if err := idx.BulkIndex(ctx, products); err != nil {
			return err
		}
	}

	s.invalidate(ctx)

	s.logger.InfoContext(ctx, "bulk index completed",
		slog.Int("count", len(products)),
	)
	return nil
}

// invalidate drops every cache family derived from catalog content. Cache
// failures are logged only; stale entries expire on their own TTLs.
func (s *IndexService) invalidate(ctx context.Context) {
	for _, pattern := range []string{
		cache.SearchKeyPrefix + "*",
		cache.FacetsKeyPrefix + "*",
		cache.CorrectionKeyPrefix + "*",
		cache.SuggestKeyPrefix + "*",
	} {
		if err := s.store.DeletePattern(ctx, pattern); err != nil {
			s.logger.WarnContext(ctx, "cache invalidation failed",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
		}
	}
}
