package ranking

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// MaxSuggestions caps the completion list.
const MaxSuggestions = 10

// appNames adapts a snapshot to fuzzy.Source.
type appNames []domain.App

func (a appNames) String(i int) string { return a[i].Name }
func (a appNames) Len() int            { return len(a) }

// Suggest completes query from past searches and app names. Past queries
// containing the query come first in the order given (newest first), then
// app names containing it in catalog order, then subsequence matches of app
// names best first. Duplicates are dropped case-insensitively and at most
// limit entries are returned; a limit <= 0 or above MaxSuggestions uses
// MaxSuggestions.
func Suggest(apps []domain.App, history []string, query string, limit int) []string {
	q := normalizeQuery(query)
	if tooShort(q) {
		return []string{}
	}
	if limit <= 0 || limit > MaxSuggestions {
		limit = MaxSuggestions
	}

	out := make([]string, 0, limit)
	seen := make(map[string]struct{})
	add := func(name string) bool {
		key := strings.ToLower(name)
		if name == "" {
			return false
		}
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		out = append(out, name)
		return len(out) == limit
	}

	for _, past := range history {
		if containsFold(past, q) && add(strings.TrimSpace(past)) {
			return out
		}
	}
	for i := range apps {
		if containsFold(apps[i].Name, q) && add(apps[i].Name) {
			return out
		}
	}
	for _, m := range fuzzy.FindFrom(q, appNames(apps)) {
		if add(m.Str) {
			return out
		}
	}
	return out
}
