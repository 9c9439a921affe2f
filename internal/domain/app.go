package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// App is a catalog entry. Records reaching the ranking code are fully
// defaulted by Normalize at the repository boundary.
type App struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Developer          string             `json:"developer"`
	Category           string             `json:"category"`
	Description        string             `json:"description"`
	Icon               string             `json:"icon,omitempty"`
	Version            string             `json:"version,omitempty"`
	Tags               []string           `json:"tags"`
	Rating             float64            `json:"rating"`
	ReviewCount        int                `json:"review_count"`
	RatingDistribution RatingDistribution `json:"rating_distribution"`
	Price              float64            `json:"price"`
	Downloads          int64              `json:"downloads"`
	Views              int64              `json:"views"`
	Featured           bool               `json:"featured"`
	AgeRating          string             `json:"age_rating,omitempty"`
	ContainsAds        bool               `json:"contains_ads"`
	AddedDate          time.Time          `json:"added_date"`
	Reviews            []Review           `json:"reviews"`
}

// Normalize fills defaults and clamps values so the ranking code can assume
// well-formed records: empty slices instead of nil, rating within [0,5],
// non-negative price and counters.
func (a *App) Normalize() {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Reviews == nil {
		a.Reviews = []Review{}
	}
	switch {
	case math.IsNaN(a.Rating) || a.Rating < 0:
		a.Rating = 0
	case a.Rating > MaxRating:
		a.Rating = MaxRating
	}
	if math.IsNaN(a.Price) || math.IsInf(a.Price, 0) || a.Price < 0 {
		a.Price = 0
	}
	if a.Downloads < 0 {
		a.Downloads = 0
	}
	if a.Views < 0 {
		a.Views = 0
	}
	if a.ReviewCount < len(a.Reviews) {
		a.ReviewCount = len(a.Reviews)
	}
}

// IsFree reports whether the app costs nothing.
func (a *App) IsFree() bool {
	return a.Price == 0
}

// Clone returns a deep copy so callers can mutate without touching a shared
// snapshot.
func (a *App) Clone() App {
	c := *a
	c.Tags = append([]string(nil), a.Tags...)
	c.Reviews = append([]Review(nil), a.Reviews...)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Reviews == nil {
		c.Reviews = []Review{}
	}
	return c
}

// SearchHit is the trimmed projection returned by instant search. The score
// used to order hits is deliberately not part of it.
type SearchHit struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Icon      string  `json:"icon"`
	Developer string  `json:"developer"`
	Category  string  `json:"category"`
	Rating    float64 `json:"rating"`
	Price     float64 `json:"price"`
}

// NewSearchHit projects an App into a SearchHit.
func NewSearchHit(a *App) SearchHit {
	return SearchHit{
		ID:        a.ID,
		Name:      a.Name,
		Icon:      a.Icon,
		Developer: a.Developer,
		Category:  a.Category,
		Rating:    a.Rating,
		Price:     a.Price,
	}
}

// CategoryNames returns the sorted, unique category names in apps.
func CategoryNames(apps []App) []string {
	seen := make(map[string]struct{}, len(apps))
	names := make([]string, 0)
	for i := range apps {
		c := strings.TrimSpace(apps[i].Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}
