package ranking

import (
	"math"
	"strings"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// Filter returns the apps satisfying every constraint in c, in input order.
// The input slice is not modified.
func Filter(apps []domain.App, c domain.Criteria) []domain.App {
	out := make([]domain.App, 0, len(apps))
	for i := range apps {
		if Matches(&apps[i], c) {
			out = append(out, apps[i])
		}
	}
	return out
}

// Matches reports whether app satisfies c. A constraint whose app-side value
// is not a usable number is skipped for that app rather than rejecting it.
func Matches(app *domain.App, c domain.Criteria) bool {
	price, priceOK := usable(app.Price)
	if priceOK && price < 0 {
		priceOK = false
	}
	rating, ratingOK := usable(app.Rating)

	if v, ok := bound(c.MinPrice); ok && priceOK && price < v {
		return false
	}
	if v, ok := bound(c.MaxPrice); ok && priceOK && price > v {
		return false
	}
	if v, ok := bound(c.MinRating); ok && ratingOK && rating < v {
		return false
	}
	if c.Category != "" && !strings.EqualFold(strings.TrimSpace(app.Category), strings.TrimSpace(c.Category)) {
		return false
	}
	if c.AgeRating != "" && app.AgeRating != c.AgeRating {
		return false
	}
	if c.FreeOnly && priceOK && !app.IsFree() {
		return false
	}
	if c.NoAds && app.ContainsAds {
		return false
	}
	return true
}

func usable(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func bound(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return usable(*p)
}
