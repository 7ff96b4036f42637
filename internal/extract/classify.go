package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shineum/mailticket/internal/ticket"
)

// Match is the outcome of a classification.
type Match[T ~string] struct {
	Category T
	// Best is the highest scoring candidate, even when it stayed below the
	// threshold and Category fell back to the default.
	Best    T
	Variant string
	Score   float64
	// Matched reports whether Score exceeded the threshold.
	Matched bool
}

// Classifier maps free text onto one category of T with fuzzy matching
// against a variant dictionary. It is safe for concurrent use.
type Classifier[T ~string] struct {
	name       string
	candidates []candidate[T]
	threshold  float64
	fallback   T
	diag       diag

	// markers are consulted only when no candidate clears the threshold,
	// and their words are ignored while the candidates are scored.
	markers     []candidate[T]
	markerWords map[string]bool
}

type candidate[T ~string] struct {
	category T
	variants []string
}

func newClassifier[T ~string](name string, entries []Entry, threshold float64, fallback T, d diag, markers ...T) (*Classifier[T], error) {
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%s threshold %v out of range (0, 1]", name, threshold)
	}
	c := &Classifier[T]{name: name, threshold: threshold, fallback: fallback, diag: d, markerWords: make(map[string]bool)}
	for _, e := range entries {
		cand := candidate[T]{category: T(e.Category), variants: e.Variants}
		if !slices.Contains(markers, cand.category) {
			c.candidates = append(c.candidates, cand)
			continue
		}
		c.markers = append(c.markers, cand)
		for _, v := range e.Variants {
			if !strings.Contains(v, " ") {
				c.markerWords[v] = true
			}
		}
	}
	return c, nil
}

// newProjectClassifier builds the project classifier. Projects also match
// their display names.
func newProjectClassifier(dict *Dictionary, threshold float64, d diag) (*Classifier[ticket.Project], error) {
	return newClassifier("project", dict.ProjectTerms(), threshold, ticket.ProjectGeneral, d)
}

// newPriorityClassifier builds the priority classifier. PRIORITY is a
// marker: "Priority: High" names a tier, only a bare "priority" is the marker.
func newPriorityClassifier(dict *Dictionary, threshold float64, d diag) (*Classifier[ticket.Priority], error) {
	return newClassifier("priority", dict.Priorities, threshold, ticket.PriorityModerate, d, ticket.PriorityMarker)
}

// newBugTypeClassifier builds the bug type classifier.
func newBugTypeClassifier(dict *Dictionary, threshold float64, d diag) (*Classifier[ticket.BugType], error) {
	return newClassifier("bug type", dict.BugTypes, threshold, ticket.BugTypeBug, d)
}

// Classify returns the category for subject and body, or the default when
// no variant scores above the threshold.
func (c *Classifier[T]) Classify(subject, body string) T {
	return c.Explain(subject, body).Category
}

// Explain classifies subject and body and reports the winning variant and
// score. Only a strictly greater score replaces the current best, so on a
// tie the category listed first in the dictionary wins. Marker categories
// are tried only when no other category clears the threshold.
func (c *Classifier[T]) Explain(subject, body string) Match[T] {
	content := strings.ToLower(subject + " " + body)

	m := best(c.candidates, c.withoutMarkers(content))
	m.Category = c.fallback
	if m.Score > c.threshold {
		m.Category = m.Best
		m.Matched = true
		c.diag.log("classified", "classifier", c.name, "category", string(m.Category), "variant", m.Variant, "score", m.Score)
		return m
	}

	if len(c.markers) > 0 {
		if mk := best(c.markers, content); mk.Score > c.threshold {
			mk.Category = mk.Best
			mk.Matched = true
			c.diag.log("classified as marker", "classifier", c.name, "category", string(mk.Category), "variant", mk.Variant, "score", mk.Score)
			return mk
		}
	}

	c.diag.log("no match above threshold, using default", "classifier", c.name, "category", string(c.fallback),
		"best", string(m.Best), "score", m.Score, "threshold", c.threshold)
	return m
}

// best returns the highest scoring variant among cands. Category is left
// for the caller to decide.
func best[T ~string](cands []candidate[T], content string) Match[T] {
	var m Match[T]
	for _, cand := range cands {
		for _, v := range cand.variants {
			score := bestSimilarity(content, v)
			if score > m.Score {
				m.Best, m.Variant, m.Score = cand.category, v, score
			}
		}
	}
	return m
}

// withoutMarkers drops marker words from content so that "priority" on
// its own cannot lend a score to "low priority" or "high priority".
// content is returned unchanged when it holds no marker word.
func (c *Classifier[T]) withoutMarkers(content string) string {
	if len(c.markerWords) == 0 {
		return content
	}
	words := tokens(content)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !c.markerWords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(words) {
		return content
	}
	return strings.Join(kept, " ")
}

// Threshold returns the score a match must exceed.
func (c *Classifier[T]) Threshold() float64 {
	return c.threshold
}
