package trigram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_PadsWords(t *testing.T) {
	grams := Extract("cat")

	// "  cat " yields "  c", " ca", "cat", "at ".
	assert.Len(t, grams, 4)
	assert.Contains(t, grams, "  c")
	assert.Contains(t, grams, " ca")
	assert.Contains(t, grams, "cat")
	assert.Contains(t, grams, "at ")
}

func TestExtract_LowercasesAndSplits(t *testing.T) {
	assert.Equal(t, Extract("Red-Shoes"), Extract("red shoes"))
}

func TestSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("smartphone", "smartphone"))
	assert.Equal(t, 1.0, Similarity("Smartphone", "smartphone"))
}

func TestSimilarity_Misspelling(t *testing.T) {
	// A dropped trailing letter still overlaps heavily.
	sim := Similarity("smartphon", "smartphone")
	assert.GreaterOrEqual(t, sim, 0.4)
	assert.Less(t, sim, 1.0)
}

func TestSimilarity_Unrelated(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("zzzzzzz", "smartphone"))
}

func TestSimilarity_EmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "smartphone"))
	assert.Equal(t, 0.0, Similarity("smartphone", ""))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"samsung", "galaxy", "s24"}, Tokens("Samsung Galaxy-S24"))
	assert.Empty(t, Tokens("  ,,  "))
}
