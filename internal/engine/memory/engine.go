// Package memory implements an in-memory search backend. It is used in tests
// and as a last-resort fallback when neither the catalog store nor the
// external engine is reachable at startup.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/velora/search-service/internal/correction/trigram"
	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/ranking"
)

// Engine is a thread-safe in-memory search backend. Text matching works on
// whole lowercase word tokens rather than substrings so that misspelled
// queries miss, matching the behavior of the primary full-text backend.
type Engine struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	ranker   *ranking.Ranker
}

// New creates an empty in-memory backend using the given ranking config.
func New(cfg ranking.Config) *Engine {
	return &Engine{
		products: make(map[string]domain.Product),
		ranker:   ranking.New(cfg),
	}
}

// Index adds or updates a single product.
func (e *Engine) Index(_ context.Context, product *domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.products[product.ID] = *product
	return nil
}

// Delete removes a product by ID.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.products, id)
	return nil
}

// BulkIndex adds or updates multiple products.
func (e *Engine) BulkIndex(_ context.Context, products []domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range products {
		e.products[products[i].ID] = products[i]
	}
	return nil
}

// Search executes a query against the in-memory index. Relevance ordering is
// produced by the shared ranker so results match the primary backend's boost
// semantics, including personalization when boosts are provided.
func (e *Engine) Search(_ context.Context, q *domain.SearchQuery, boosts *ranking.Boosts) (*domain.SearchResult, error) {
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := trigram.Tokens(q.Query)

	matched := make([]domain.Product, 0)
	for _, p := range e.products {
		if !e.matches(p, q, tokens) {
			continue
		}
		if len(tokens) > 0 {
			p.Score = trigram.Similarity(p.Name, q.Query)
		}
		matched = append(matched, p)
	}

	e.sortProducts(matched, q.SortBy, boosts)

	total := len(matched)
	offset := (q.Page - 1) * q.PerPage
	if offset > total {
		offset = total
	}
	end := offset + q.PerPage
	if end > total {
		end = total
	}

	return &domain.SearchResult{
		Products: matched[offset:end],
		Total:    total,
		Page:     q.Page,
		PerPage:  q.PerPage,
		TookMs:   time.Since(start).Milliseconds(),
	}, nil
}

// SupportsQueryBoosts reports that boosts are applied during Search.
func (e *Engine) SupportsQueryBoosts() bool {
	return true
}

// Ping always succeeds for the in-memory backend.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}

// Name identifies the backend in logs and metadata.
func (e *Engine) Name() string {
	return "memory"
}

// matches checks whether a product passes the query's filters. Text matching
// requires every query token to appear as a whole word in the product's name,
// description or tags.
func (e *Engine) matches(p domain.Product, q *domain.SearchQuery, tokens []string) bool {
	if p.Status != domain.StatusApproved {
		return false
	}

	if len(tokens) > 0 {
		words := make(map[string]struct{})
		for _, w := range trigram.Tokens(p.Name + " " + p.Description) {
			words[w] = struct{}{}
		}
		for _, t := range p.Tags {
			words[strings.ToLower(t)] = struct{}{}
		}
		for _, t := range tokens {
			if _, ok := words[t]; !ok {
				return false
			}
		}
	}

	if len(q.CategoryIDs) > 0 && !contains(q.CategoryIDs, p.CategoryID) {
		return false
	}
	if len(q.BrandIDs) > 0 && !contains(q.BrandIDs, p.BrandID) {
		return false
	}

	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}

	if len(q.Colors) > 0 && !hasVariantColor(p, q.Colors) {
		return false
	}
	if len(q.Sizes) > 0 && !hasVariantSize(p, q.Sizes) {
		return false
	}

	return true
}

// sortProducts orders matches. Relevance goes through the ranker; all other
// sorts tie-break on ID ascending for stable pagination.
func (e *Engine) sortProducts(products []domain.Product, sortBy string, boosts *ranking.Boosts) {
	switch sortBy {
	case domain.SortPriceAsc:
		sort.Slice(products, func(i, j int) bool {
			if products[i].Price != products[j].Price {
				return products[i].Price < products[j].Price
			}
			return products[i].ID < products[j].ID
		})
	case domain.SortPriceDesc:
		sort.Slice(products, func(i, j int) bool {
			if products[i].Price != products[j].Price {
				return products[i].Price > products[j].Price
			}
			return products[i].ID < products[j].ID
		})
	case domain.SortNewest:
		sort.Slice(products, func(i, j int) bool {
			if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
				return products[i].CreatedAt.After(products[j].CreatedAt)
			}
			return products[i].ID < products[j].ID
		})
	case domain.SortRating:
		sort.Slice(products, func(i, j int) bool {
			if products[i].Rating != products[j].Rating {
				return products[i].Rating > products[j].Rating
			}
			return products[i].ID < products[j].ID
		})
	default:
		e.ranker.Rank(products, boosts)
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func hasVariantColor(p domain.Product, colors []string) bool {
	for _, v := range p.Variants {
		for _, c := range colors {
			if strings.EqualFold(v.Color, c) {
				return true
			}
		}
	}
	return false
}

func hasVariantSize(p domain.Product, sizes []string) bool {
	for _, v := range p.Variants {
		for _, s := range sizes {
			if strings.EqualFold(v.Size, s) {
				return true
			}
		}
	}
	return false
}
