package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/velora/search-service/internal/domain"
)

// Key prefixes per entry kind. Separate prefixes let event-driven
// invalidation target each family with DeletePattern.
const (
	SearchKeyPrefix      = "search:"
	FacetsKeyPrefix      = "facets:"
	CorrectionKeyPrefix  = "correction:"
	PreferencesKeyPrefix = "prefs:"
	SuggestKeyPrefix     = "suggest:"
)

// SearchKey builds a deterministic cache key for a full search response.
// The key covers the normalized query, every filter, sort, pagination, and
// the requesting user (personalized result sets differ per user).
func SearchKey(q *domain.SearchQuery) string {
	return SearchKeyPrefix + hashContext(q, true)
}

// FacetsKey builds a deterministic cache key for a facet summary. Pagination
// and user identity do not affect facet counts and are excluded.
func FacetsKey(q *domain.SearchQuery) string {
	return FacetsKeyPrefix + hashContext(q, false)
}

// CorrectionKey builds the cache key for a spell-correction outcome
// (including the negative outcome).
func CorrectionKey(term string) string {
	return CorrectionKeyPrefix + strings.ToLower(strings.TrimSpace(term))
}

// PreferencesKey builds the cache key for a user's preference profile.
func PreferencesKey(userID string) string {
	return PreferencesKeyPrefix + userID
}

// SuggestKey builds the cache key for an autocomplete suggestion list.
func SuggestKey(prefix string, limit int) string {
	return fmt.Sprintf("%s%s:%d", SuggestKeyPrefix, strings.ToLower(strings.TrimSpace(prefix)), limit)
}

// hashContext renders the filter context into a canonical string and hashes
// it. Slice filters are sorted so equivalent contexts produce equal keys.
func hashContext(q *domain.SearchQuery, withPageAndUser bool) string {
	var b strings.Builder

	b.WriteString("q=")
	b.WriteString(strings.ToLower(strings.TrimSpace(q.Query)))
	b.WriteString("|cat=")
	b.WriteString(joinSorted(q.CategoryIDs))
	b.WriteString("|brand=")
	b.WriteString(joinSorted(q.BrandIDs))
	b.WriteString("|color=")
	b.WriteString(joinSorted(q.Colors))
	b.WriteString("|size=")
	b.WriteString(joinSorted(q.Sizes))

	if q.MinPrice != nil {
		fmt.Fprintf(&b, "|min=%d", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		fmt.Fprintf(&b, "|max=%d", *q.MaxPrice)
	}

	b.WriteString("|sort=")
	b.WriteString(q.SortBy)

	if withPageAndUser {
		fmt.Fprintf(&b, "|page=%d|per=%d", q.Page, q.PerPage)
		if q.UserID != "" {
			b.WriteString("|user=")
			b.WriteString(q.UserID)
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
