package ranking

import (
	"sort"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// Trending defaults.
const (
	DefaultTrendingLimit = 10
	DefaultTrendingDays  = 7
)

// Counts maps app ids to an engagement count within some window.
type Counts map[string]int64

// TrendingRanker orders apps by a weighted mix of views, downloads and
// rating. Raw counts are not normalized, so volume dominates rating once
// counts grow past a handful.
type TrendingRanker struct {
	weights TrendWeights
}

// NewTrendingRanker creates a ranker with the given weights.
func NewTrendingRanker(w TrendWeights) *TrendingRanker {
	return &TrendingRanker{weights: w}
}

// Score returns the trend score for the given counts and rating.
func (t *TrendingRanker) Score(views, downloads int64, rating float64) float64 {
	w := t.weights
	return float64(views)*w.Views + float64(downloads)*w.Downloads + clampRating(rating)*w.Rating
}

// Rank orders apps by trend score, best first, ties in catalog order. A nil
// count map falls back to each app's lifetime counter; in a non-nil map a
// missing id counts as zero. A limit <= 0 means no cap.
func (t *TrendingRanker) Rank(apps []domain.App, views, downloads Counts, limit int) []domain.App {
	entries := make([]scored, 0, len(apps))
	for i := range apps {
		a := &apps[i]
		v := a.Views
		if views != nil {
			v = views[a.ID]
		}
		d := a.Downloads
		if downloads != nil {
			d = downloads[a.ID]
		}
		entries = append(entries, scored{app: a, score: t.Score(v, d, a.Rating)})
	}
	sortByScore(entries)
	return take(entries, limit)
}

// Featured returns up to limit featured apps in catalog order.
func Featured(apps []domain.App, limit int) []domain.App {
	entries := make([]scored, 0)
	for i := range apps {
		if apps[i].Featured {
			entries = append(entries, scored{app: &apps[i]})
		}
	}
	return take(entries, limit)
}

// Recent returns up to limit apps, newest AddedDate first. Equal dates keep
// catalog order.
func Recent(apps []domain.App, limit int) []domain.App {
	entries := make([]scored, len(apps))
	for i := range apps {
		entries[i] = scored{app: &apps[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].app.AddedDate.After(entries[j].app.AddedDate)
	})
	return take(entries, limit)
}
