package domain

// PriceRange is the min/max price of items matching a filter context.
type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// FacetBucket is one available value in an id-keyed facet dimension
// (categories, brands).
type FacetBucket struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ValueBucket is one available value in a value-keyed facet dimension
// (colors). Name carries the display name when it differs from the value.
type ValueBucket struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
	Count int    `json:"count"`
}

// SizeBucket is one available size value with its item count.
type SizeBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetSummary is a derived snapshot of the filters available under the
// current filter context. Every count reflects the active filters minus that
// dimension's own filter, so selecting a brand still shows all brand options.
type FacetSummary struct {
	PriceRange PriceRange    `json:"price_range"`
	Categories []FacetBucket `json:"categories"`
	Brands     []FacetBucket `json:"brands"`
	Colors     []ValueBucket `json:"colors"`
	Sizes      []SizeBucket  `json:"sizes"`
}

// EmptyFacetSummary returns a facet summary with no available filters. It is
// the degraded value used when facet aggregation fails or times out.
func EmptyFacetSummary() *FacetSummary {
	return &FacetSummary{
		Categories: []FacetBucket{},
		Brands:     []FacetBucket{},
		Colors:     []ValueBucket{},
		Sizes:      []SizeBucket{},
	}
}
