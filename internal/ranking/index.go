package ranking

import (
	"strings"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// Index is an inverted token index over a catalog snapshot. Keys are
// lowercase whitespace-delimited tokens of name, developer, category and
// tags. Description tokens are kept in a separate posting map that is only
// consulted when narrowing candidates, so Lookup stays limited to the
// catalog's identifying fields.
type Index struct {
	tokens      map[string]map[string]struct{}
	description map[string]map[string]struct{}
	size        int
}

// BuildIndex indexes apps. The index is immutable once built.
func BuildIndex(apps []domain.App) *Index {
	idx := &Index{
		tokens:      make(map[string]map[string]struct{}),
		description: make(map[string]map[string]struct{}),
		size:        len(apps),
	}
	for i := range apps {
		a := &apps[i]
		addTokens(idx.tokens, a.ID, a.Name)
		addTokens(idx.tokens, a.ID, a.Developer)
		addTokens(idx.tokens, a.ID, a.Category)
		for _, tag := range a.Tags {
			addTokens(idx.tokens, a.ID, tag)
		}
		addTokens(idx.description, a.ID, a.Description)
	}
	return idx
}

func addTokens(postings map[string]map[string]struct{}, id, text string) {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		ids, ok := postings[tok]
		if !ok {
			ids = make(map[string]struct{})
			postings[tok] = ids
		}
		ids[id] = struct{}{}
	}
}

// Lookup returns the ids of apps whose name, developer, category or tags
// contain token as a whole word. The returned set is a copy.
func (idx *Index) Lookup(token string) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range idx.tokens[strings.ToLower(strings.TrimSpace(token))] {
		out[id] = struct{}{}
	}
	return out
}

// Len returns the number of apps the index was built from.
func (idx *Index) Len() int {
	return idx.size
}

// Vocabulary returns the number of distinct identifying tokens.
func (idx *Index) Vocabulary() int {
	return len(idx.tokens)
}

// Candidates returns the ids of every app that could contain the normalized
// query q as a substring of any scored text field. When q occurs inside a
// field, each of its whitespace-free pieces occurs inside one token of that
// field, so scanning tokens for the longest piece loses no match.
func (idx *Index) Candidates(q string) map[string]struct{} {
	piece := longestPiece(q)
	out := make(map[string]struct{})
	if piece == "" {
		return out
	}
	collect := func(postings map[string]map[string]struct{}) {
		for tok, ids := range postings {
			if !strings.Contains(tok, piece) {
				continue
			}
			for id := range ids {
				out[id] = struct{}{}
			}
		}
	}
	collect(idx.tokens)
	collect(idx.description)
	return out
}

func longestPiece(q string) string {
	var best string
	for _, p := range strings.Fields(q) {
		if len(p) > len(best) {
			best = p
		}
	}
	return best
}
