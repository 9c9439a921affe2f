package ranking

import (
	"math"
	"strings"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// Defaults for recommendation lists.
const (
	DefaultRecommendLimit = 5

	// PersonalizedHistory is how many recent purchases seed personalized
	// recommendations.
	PersonalizedHistory = 5
	// PersonalizedPerPurchase is how many similar apps each purchase adds.
	PersonalizedPerPurchase = 3
	// PersonalizedLimit caps the personalized list.
	PersonalizedLimit = 10
)

// Recommender computes app-to-app similarity.
type Recommender struct {
	weights SimilarityWeights
}

// NewRecommender creates a recommender with the given weights.
func NewRecommender(w SimilarityWeights) *Recommender {
	return &Recommender{weights: w}
}

// Similarity returns how alike a and b are. With the stock weights the
// result lies in [0,1] and is symmetric in its arguments. Two apps without
// a category share the same (empty) category.
func (r *Recommender) Similarity(a, b *domain.App) float64 {
	w := r.weights
	var score float64

	if strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(b.Category)) {
		score += w.Category
	}

	score += tagJaccard(a.Tags, b.Tags) * w.Tags

	diff := math.Abs(clampRating(a.Rating) - clampRating(b.Rating))
	score += (domain.MaxRating - diff) / domain.MaxRating * w.Rating

	score += priceCloseness(a.Price, b.Price) * w.Price

	return score
}

// Recommend returns up to limit apps most similar to target, excluding
// target itself. Ties keep catalog order. A limit <= 0 uses
// DefaultRecommendLimit.
func (r *Recommender) Recommend(target *domain.App, apps []domain.App, limit int) []domain.App {
	if target == nil {
		return []domain.App{}
	}
	if limit <= 0 {
		limit = DefaultRecommendLimit
	}
	entries := make([]scored, 0, len(apps))
	for i := range apps {
		if apps[i].ID == target.ID {
			continue
		}
		entries = append(entries, scored{app: &apps[i], score: r.Similarity(target, &apps[i])})
	}
	sortByScore(entries)
	return take(entries, limit)
}

// Personalized builds recommendations from a purchase history ordered most
// recent first. The first PersonalizedHistory purchases each contribute
// their PersonalizedPerPurchase most similar apps; purchased apps and
// duplicates are dropped and the union is capped at PersonalizedLimit. The
// result is nil when no purchased app is in the catalog, so the caller can
// fall back to another list.
func (r *Recommender) Personalized(purchases []string, apps []domain.App) []domain.App {
	byID := make(map[string]*domain.App, len(apps))
	for i := range apps {
		byID[apps[i].ID] = &apps[i]
	}

	seen := make(map[string]struct{}, len(purchases))
	for _, id := range purchases {
		seen[id] = struct{}{}
	}

	recent := purchases
	if len(recent) > PersonalizedHistory {
		recent = recent[:PersonalizedHistory]
	}

	var (
		out   []domain.App
		found bool
	)
	for _, id := range recent {
		target, ok := byID[id]
		if !ok {
			continue
		}
		found = true
		for _, rec := range r.Recommend(target, apps, PersonalizedPerPurchase) {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			out = append(out, rec)
			if len(out) == PersonalizedLimit {
				return out
			}
		}
	}
	if !found {
		return nil
	}
	if out == nil {
		out = []domain.App{}
	}
	return out
}

func tagJaccard(a, b []string) float64 {
	setA := tagSet(a)
	setB := tagSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	var inter int
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(setA)+len(setB)-inter)
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// priceCloseness is 1 when both apps are free, the ratio of the cheaper to
// the dearer price when both are paid, and 0 across monetization tiers.
func priceCloseness(pa, pb float64) float64 {
	pa, pb = clampPrice(pa), clampPrice(pb)
	switch {
	case pa == 0 && pb == 0:
		return 1
	case pa == 0 || pb == 0:
		return 0
	default:
		return math.Min(pa, pb) / math.Max(pa, pb)
	}
}

func clampRating(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > domain.MaxRating:
		return domain.MaxRating
	}
	return v
}

func clampPrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
