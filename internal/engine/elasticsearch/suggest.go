package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/velora/search-service/internal/domain"
)

// esSuggestResponse decodes Elasticsearch suggest responses.
type esSuggestResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source struct {
				Name string `json:"name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Suggest returns autocomplete suggestions for the given prefix. It queries
// the name.autocomplete field and returns unique product names from approved
// products, ordered by relevance.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]domain.Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"match": map[string]any{
							"name.autocomplete": prefix,
						},
					},
				},
				"filter": []any{
					map[string]any{
						"term": map[string]any{
							"status": domain.StatusApproved,
						},
					},
				},
			},
		},
		"size":    limit * 2,
		"_source": []string{"name"},
		"sort": []any{
			map[string]any{"_score": "desc"},
		},
	}

	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch suggest: %s", e.decodeError(res.Body, res.Status()))
	}

	var esResp esSuggestResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	// Deduplicate names while preserving score order.
	seen := make(map[string]struct{})
	suggestions := make([]domain.Suggestion, 0, limit)
	for _, hit := range esResp.Hits.Hits {
		name := hit.Source.Name
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		suggestions = append(suggestions, domain.Suggestion{
			Term:   name,
			Score:  hit.Score,
			Source: domain.CorrectionSourceProduct,
		})
		if len(suggestions) == limit {
			break
		}
	}

	return suggestions, nil
}
