package ranking

import (
	"strings"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// RelevanceScorer scores apps against a free-text query.
type RelevanceScorer struct {
	weights RelevanceWeights
}

// NewRelevanceScorer creates a scorer with the given weights.
func NewRelevanceScorer(w RelevanceWeights) *RelevanceScorer {
	return &RelevanceScorer{weights: w}
}

// Weights returns the scorer's weight table.
func (s *RelevanceScorer) Weights() RelevanceWeights {
	return s.weights
}

// Score returns the relevance of app for query. Matching is
// case-insensitive. The featured and popularity boosts only apply once at
// least one text field matched, so an unrelated app always scores 0.
func (s *RelevanceScorer) Score(app *domain.App, query string) float64 {
	q := normalizeQuery(query)
	if q == "" || app == nil {
		return 0
	}
	return s.score(app, q)
}

func (s *RelevanceScorer) score(app *domain.App, q string) float64 {
	w := s.weights

	var (
		total   float64
		matched bool
	)

	name := strings.ToLower(strings.TrimSpace(app.Name))
	switch {
	case name == q:
		total += w.ExactName
		matched = true
	case strings.HasPrefix(name, q):
		total += w.NamePrefix
		matched = true
	case strings.Contains(name, q):
		total += w.NameSubstring
		matched = true
	}

	if containsFold(app.Developer, q) {
		total += w.Developer
		matched = true
	}
	if containsFold(app.Category, q) {
		total += w.Category
		matched = true
	}
	if containsFold(app.Description, q) {
		total += w.Description
		matched = true
	}
	for _, tag := range app.Tags {
		if containsFold(tag, q) {
			total += w.Tag
			matched = true
			break
		}
	}

	if !matched {
		return 0
	}

	if app.Featured {
		total += w.Featured
	}
	total += popularityBoost(w.Popularity, app.Downloads)

	return total
}

// Rank returns at most limit apps with a positive score for query, best
// first. Equal scores keep catalog order. Queries shorter than
// MinQueryLength yield an empty result. A limit <= 0 means no cap.
func (s *RelevanceScorer) Rank(apps []domain.App, query string, limit int) []domain.App {
	return s.RankIndexed(apps, nil, query, limit)
}

// RankIndexed is Rank with the candidate set narrowed by idx. The index must
// have been built from the same apps; a nil index scans everything. Results
// are identical to a full scan.
func (s *RelevanceScorer) RankIndexed(apps []domain.App, idx *Index, query string, limit int) []domain.App {
	q := normalizeQuery(query)
	if tooShort(q) {
		return []domain.App{}
	}

	var candidates map[string]struct{}
	if idx != nil {
		candidates = idx.Candidates(q)
	}

	entries := make([]scored, 0)
	for i := range apps {
		if candidates != nil {
			if _, ok := candidates[apps[i].ID]; !ok {
				continue
			}
		}
		if sc := s.score(&apps[i], q); sc > 0 {
			entries = append(entries, scored{app: &apps[i], score: sc})
		}
	}

	sortByScore(entries)
	return take(entries, limit)
}

func popularityBoost(bands []PopularityBand, downloads int64) float64 {
	for _, b := range bands {
		if downloads > b.Above {
			return b.Boost
		}
	}
	return 0
}

// containsFold reports whether the lowercase needle occurs in s, ignoring case.
func containsFold(s, needle string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), needle)
}
