package ranking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// SubstringSimilarity is returned when one string contains the other.
const SubstringSimilarity = 0.9

// Supported fuzzy metrics.
const (
	MetricJaccard     = "jaccard"
	MetricLevenshtein = "levenshtein"
)

// StringSimilarity returns a similarity in [0,1] for two strings.
type StringSimilarity func(a, b string) float64

// MetricByName resolves a configured metric name.
func MetricByName(name string) (StringSimilarity, error) {
	switch strings.ToLower(name) {
	case "", MetricJaccard:
		return JaccardSimilarity, nil
	case MetricLevenshtein:
		return LevenshteinSimilarity, nil
	default:
		return nil, fmt.Errorf("unknown fuzzy metric %q", name)
	}
}

// JaccardSimilarity compares two strings case-insensitively. Empty input
// scores 0, equal strings 1, containment SubstringSimilarity, and anything
// else the Jaccard index of the two sets of distinct characters.
func JaccardSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if s, ok := containment(a, b); ok {
		return s
	}

	setA := runeSet(a)
	setB := runeSet(b)

	var inter int
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// LevenshteinSimilarity is JaccardSimilarity with the character-set overlap
// replaced by 1 - distance/longest. Single-character typos score high here
// while anagrams score low, the opposite of the Jaccard metric, so
// thresholds tuned for one do not carry over to the other.
func LevenshteinSimilarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if s, ok := containment(a, b); ok {
		return s
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// containment handles the shared cases of both metrics.
func containment(a, b string) (float64, bool) {
	switch {
	case a == "" || b == "":
		return 0, true
	case a == b:
		return 1, true
	case strings.Contains(a, b) || strings.Contains(b, a):
		return SubstringSimilarity, true
	}
	return 0, false
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}

// FuzzyMatcher performs typo-tolerant search over name, developer and
// description.
type FuzzyMatcher struct {
	similarity StringSimilarity
	weights    FuzzyWeights
}

// NewFuzzyMatcher creates a matcher. A nil similarity uses JaccardSimilarity.
func NewFuzzyMatcher(sim StringSimilarity, w FuzzyWeights) *FuzzyMatcher {
	if sim == nil {
		sim = JaccardSimilarity
	}
	return &FuzzyMatcher{similarity: sim, weights: w}
}

// Similarity compares two strings with the matcher's metric.
func (m *FuzzyMatcher) Similarity(a, b string) float64 {
	return m.similarity(a, b)
}

// Score returns the best weighted field similarity of app to query.
func (m *FuzzyMatcher) Score(app *domain.App, query string) float64 {
	q := strings.TrimSpace(query)
	best := m.similarity(q, app.Name) * m.weights.Name
	if s := m.similarity(q, app.Developer) * m.weights.Developer; s > best {
		best = s
	}
	if s := m.similarity(q, app.Description) * m.weights.Description; s > best {
		best = s
	}
	return best
}

// Search returns the apps whose Score reaches threshold, best first, with
// ties in catalog order. A blank query matches nothing at any threshold.
func (m *FuzzyMatcher) Search(apps []domain.App, query string, threshold float64) []domain.App {
	if strings.TrimSpace(query) == "" {
		return []domain.App{}
	}
	entries := make([]scored, 0)
	for i := range apps {
		if sc := m.Score(&apps[i], query); sc >= threshold {
			entries = append(entries, scored{app: &apps[i], score: sc})
		}
	}
	sortByScore(entries)
	return take(entries, 0)
}
