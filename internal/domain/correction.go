package domain

// Vocabulary sources a spell correction can come from.
const (
	CorrectionSourceProduct  = "product"
	CorrectionSourceCategory = "category"
	CorrectionSourceTag      = "tag"
)

// Correction is the result of a spell-correction lookup. CorrectedQuery is
// never set to a term that normalizes identically to OriginalQuery.
type Correction struct {
	OriginalQuery  string  `json:"original_query"`
	CorrectedQuery string  `json:"corrected_query"`
	Confidence     float64 `json:"confidence"`
	Source         string  `json:"source"`
}

// Suggestion is a single autocomplete candidate.
type Suggestion struct {
	Term   string  `json:"term"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}
