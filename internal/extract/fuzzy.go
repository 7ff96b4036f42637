package extract

import (
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
)

// Jaro-Winkler parameters: the prefix bonus applies above a Jaro score of
// 0.7 and looks at no more than four leading characters.
//
// smetrics compares bytes, not runes, so a non-ASCII letter counts as two
// or more characters of its UTF-8 encoding and scores lower than the same
// typo in ASCII. The dictionary variants are all ASCII.
const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// Similarity returns the case-insensitive Jaro-Winkler similarity of a and
// b in [0, 1]. Equal strings score 1.
func Similarity(a, b string) float64 {
	return smetrics.JaroWinkler(strings.ToLower(a), strings.ToLower(b), boostThreshold, prefixSize)
}

// EditDistance returns the Levenshtein distance between a and b, ignoring
// case.
func EditDistance(a, b string) int {
	return smetrics.WagnerFischer(strings.ToLower(a), strings.ToLower(b), 1, 1, 1)
}

// tokens splits content on whitespace and strips punctuation hugging each
// word, so "portal." compares as "portal".
func tokens(content string) []string {
	fields := strings.Fields(content)
	out := fields[:0]
	for _, f := range fields {
		if t := strings.TrimFunc(f, unicode.IsPunct); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// BestSimilarityInContent scores how well term occurs in content. A literal
// case-insensitive substring scores 1. Otherwise the score is the best
// similarity between term and any single word of content and, for a
// multi-word term, between term and every run of the same number of
// consecutive words.
func BestSimilarityInContent(content, term string) float64 {
	return bestSimilarity(strings.ToLower(content), term)
}

// bestSimilarity is BestSimilarityInContent for content that is already
// lower-cased; the classifiers lower-case once per call.
func bestSimilarity(content, term string) float64 {
	term = strings.Join(strings.Fields(strings.ToLower(term)), " ")
	if term == "" {
		return 0
	}
	if strings.Contains(content, term) {
		return 1
	}

	words := tokens(content)
	best := 0.0
	for _, w := range words {
		best = max(best, smetrics.JaroWinkler(w, term, boostThreshold, prefixSize))
	}

	n := strings.Count(term, " ") + 1
	if n > 1 {
		for i := 0; i+n <= len(words); i++ {
			phrase := strings.Join(words[i:i+n], " ")
			best = max(best, smetrics.JaroWinkler(phrase, term, boostThreshold, prefixSize))
		}
	}
	return best
}
