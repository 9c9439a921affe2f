package domain

import (
	"math"
	"strconv"
	"strings"
)

// AdvancedSearchCap bounds the size of an advanced search response.
const AdvancedSearchCap = 50

// Criteria holds the optional structured constraints for filtering. A nil
// pointer or empty string means the key was absent and imposes nothing.
type Criteria struct {
	Query     string   `json:"query,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	Category  string   `json:"category,omitempty"`
	AgeRating string   `json:"age_rating,omitempty"`
	FreeOnly  bool     `json:"free_only,omitempty"`
	NoAds     bool     `json:"no_ads,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (c Criteria) IsEmpty() bool {
	return c.MinPrice == nil && c.MaxPrice == nil && c.MinRating == nil &&
		c.Category == "" && c.AgeRating == "" && !c.FreeOnly && !c.NoAds
}

// CriteriaFromValues builds Criteria from loosely typed key/value input such
// as URL query parameters. Values that do not parse as finite numbers or
// booleans are dropped, so the corresponding predicate is skipped instead of
// failing the whole request.
func CriteriaFromValues(get func(key string) string) Criteria {
	c := Criteria{
		Query:     strings.TrimSpace(get("q")),
		Category:  strings.TrimSpace(get("category")),
		AgeRating: strings.TrimSpace(get("age_rating")),
		MinPrice:  parseFloat(get("min_price")),
		MaxPrice:  parseFloat(get("max_price")),
		MinRating: parseFloat(get("min_rating")),
		FreeOnly:  parseBool(get("free_only")),
		NoAds:     parseBool(get("no_ads")),
	}
	return c
}

func parseFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
