package analytics

import (
	"strings"
	"unicode"
)

// normalizeAnswer trims surrounding whitespace and lowercases.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DiceSimilarity returns the Sørensen–Dice coefficient over character bigrams
// of the two strings, ignoring whitespace. Bigrams are counted as a multiset so
// repeated pairs only match as often as they occur in both strings.
func DiceSimilarity(a, b string) float64 {
	ra := []rune(stripSpace(a))
	rb := []rune(stripSpace(b))

	if string(ra) == string(rb) {
		return 1.0
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0.0
	}

	pairs := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		pairs[[2]rune{ra[i], ra[i+1]}]++
	}

	shared := 0
	for i := 0; i < len(rb)-1; i++ {
		key := [2]rune{rb[i], rb[i+1]}
		if pairs[key] > 0 {
			pairs[key]--
			shared++
		}
	}

	return 2.0 * float64(shared) / float64(len(ra)-1+len(rb)-1)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
