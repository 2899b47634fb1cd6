// Package trigram implements pg_trgm-compatible string similarity scoring.
// It is used wherever vocabulary matching has to run without the database:
// the in-memory search backend and correction tests.
package trigram

import (
	"strings"
	"unicode"
)

// Extract returns the set of trigrams for s, following pg_trgm conventions:
// the string is lowercased, split into alphanumeric words, and each word is
// padded with two leading spaces and one trailing space before extraction.
func Extract(s string) map[string]struct{} {
	grams := make(map[string]struct{})
	for _, word := range words(s) {
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			grams[string(runes[i:i+3])] = struct{}{}
		}
	}
	return grams
}

// Similarity returns the trigram similarity of a and b in [0,1]: the size of
// the trigram intersection divided by the size of the union, matching the
// semantics of the pg_trgm similarity() function.
func Similarity(a, b string) float64 {
	ga := Extract(a)
	gb := Extract(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}

	shared := 0
	for g := range ga {
		if _, ok := gb[g]; ok {
			shared++
		}
	}

	union := len(ga) + len(gb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// Tokens lowercases s and splits it into runs of letters and digits, the
// same word segmentation Extract applies before computing trigrams.
func Tokens(s string) []string {
	return words(s)
}

// words lowercases s and splits it into runs of letters and digits.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
