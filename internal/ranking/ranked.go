package ranking

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// scored pairs a snapshot entry with its computed sort key.
type scored struct {
	app   *domain.App
	score float64
}

// sortByScore orders entries by descending score. Equal scores keep their
// input order.
func sortByScore(entries []scored) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
}

// take copies at most limit apps out of entries. A limit <= 0 takes all.
func take(entries []scored, limit int) []domain.App {
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.App, n)
	for i := 0; i < n; i++ {
		out[i] = *entries[i].app
	}
	return out
}

// normalizeQuery trims and lowercases a user query.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// tooShort reports whether a normalized query is below MinQueryLength.
func tooShort(q string) bool {
	return utf8.RuneCountInString(q) < MinQueryLength
}
