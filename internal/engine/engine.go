package engine

import (
	"context"

	"github.com/velora/search-service/internal/domain"
	"github.com/velora/search-service/internal/ranking"
)

// Backend is the capability set the orchestrator is polymorphic over. The
// primary backend runs against the catalog store; an external index backend
// may serve the same contract.
type Backend interface {
	// Search executes the query restricted by the filter context. When the
	// backend supports query-time boosts, the given personalization boosts
	// participate in the ordering; otherwise the orchestrator re-scores the
	// returned page.
	Search(ctx context.Context, q *domain.SearchQuery, boosts *ranking.Boosts) (*domain.SearchResult, error)

	// SupportsQueryBoosts reports whether personalization boosts are applied
	// at query time.
	SupportsQueryBoosts() bool

	// Ping checks whether the backend is reachable.
	Ping(ctx context.Context) error

	// Name identifies the backend in logs and response metadata.
	Name() string
}

// Indexer is implemented by backends that maintain their own index and need
// catalog change events applied (external index, in-memory engine).
type Indexer interface {
	Index(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	BulkIndex(ctx context.Context, products []domain.Product) error
}
