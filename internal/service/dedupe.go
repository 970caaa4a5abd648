package service

import (
	"regexp"
	"strings"

	"github.com/mrctran/mnemo/internal/domain"
)

// DefaultDuplicateThreshold is the vector score at or above which a
// candidate counts as a duplicate of new text.
const DefaultDuplicateThreshold = 0.95

var whitespaceRe = regexp.MustCompile(`\s+`)

// FindDuplicate returns the id of the first candidate whose score meets
// the threshold, or "" when none does. Candidates are checked in
// iteration order.
func FindDuplicate(candidates []domain.ScoredPoint, threshold float64) string {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	for _, c := range candidates {
		if c.Score >= threshold {
			return c.ID
		}
	}
	return ""
}

// NormalizeText lowercases and collapses whitespace for text-only
// comparison.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(text), " "))
}

// JaccardSimilarity is the word-set Jaccard index of two normalised
// texts. Used when no vectors are available.
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(NormalizeText(text)) {
		set[w] = true
	}
	return set
}
