package detect

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Similarity is the fuzzy metric used for sanctions screening: normalized
// Levenshtein similarity, 1 - distance/max(len(a), len(b)), computed over
// uppercased names with whitespace collapsed to single spaces. Identical
// names score 1.0; fully disjoint names approach 0. The metric is symmetric
// and deterministic, so screening results are independent of list order.
func Similarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	return 1 - float64(dist)/float64(longest)
}

// BestMatch returns the highest similarity between name and any entry, with
// the matching entry. Ties keep the first entry in iteration order; the score
// itself is order-independent.
func BestMatch(name string, entries []string) (string, float64) {
	var bestEntry string
	var best float64
	for _, e := range entries {
		if s := Similarity(name, e); s > best {
			best = s
			bestEntry = e
		}
	}
	return bestEntry, best
}

func normalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
