package service

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	"github.com/utafrali/AppStoreGo/pkg/slug"
)

// Search limits.
const (
	DefaultSearchLimit    = 8
	MaxSearchLimit        = 50
	DefaultFuzzyThreshold = 0.7
	DefaultListLimit      = 6
)

// SearchService answers read-only catalog queries over the current
// snapshot.
type SearchService struct {
	catalog *catalog.Catalog
	scorer  *ranking.RelevanceScorer
	fuzzy   *ranking.FuzzyMatcher
	history repository.SearchHistory
	logger  *slog.Logger
}

// NewSearchService creates a new search service. Search queries are
// recorded in history and offered back as suggestions.
func NewSearchService(
	cat *catalog.Catalog,
	scorer *ranking.RelevanceScorer,
	fuzzy *ranking.FuzzyMatcher,
	history repository.SearchHistory,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		catalog: cat,
		scorer:  scorer,
		fuzzy:   fuzzy,
		history: history,
		logger:  logger,
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// Search ranks apps by relevance to query and returns the trimmed hits.
// Queries shorter than two characters return no hits and are not recorded.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, DefaultSearchLimit, MaxSearchLimit)

	done := catalog.ObserveRanking("search")
	ranked := s.scorer.RankIndexed(snap.Apps, snap.Index, query, limit)
	done()

	hits := make([]domain.SearchHit, 0, len(ranked))
	for i := range ranked {
		hits = append(hits, domain.NewSearchHit(&ranked[i]))
	}
	s.recordQuery(ctx, query)

	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", query),
		slog.Int("hits", len(hits)),
	)
	return hits, nil
}

// recordQuery adds a searchable query to the history. Failures only cost
// future suggestions, so they are logged.
func (s *SearchService) recordQuery(ctx context.Context, query string) {
	q := strings.TrimSpace(query)
	if s.history == nil || utf8.RuneCountInString(q) < ranking.MinQueryLength {
		return
	}
	if err := s.history.AddQuery(ctx, q); err != nil {
		s.logger.WarnContext(ctx, "failed to record search query",
			slog.String("query", q),
			slog.String("error", err.Error()),
		)
	}
}

// Suggest returns up to limit completions of query: matching recent
// searches first, then app names. When the history cannot be read the
// names alone are suggested.
func (s *SearchService) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}

	var history []string
	if s.history != nil {
		history, err = s.history.RecentQueries(ctx, repository.MaxSearchHistory)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to read search history",
				slog.String("error", err.Error()),
			)
			history = nil
		}
	}

	defer catalog.ObserveRanking("suggest")()
	return ranking.Suggest(snap.Apps, history, query, limit), nil
}

// Fuzzy returns apps whose name, developer or description resemble query at
// or above threshold. Thresholds outside [0,1] are clamped and a blank query
// matches nothing.
func (s *SearchService) Fuzzy(ctx context.Context, query string, threshold float64) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []domain.App{}, nil
	}
	if math.IsNaN(threshold) {
		threshold = DefaultFuzzyThreshold
	}
	threshold = math.Max(0, math.Min(1, threshold))

	done := catalog.ObserveRanking("fuzzy")
	apps := s.fuzzy.Search(snap.Apps, query, threshold)
	done()

	s.logger.DebugContext(ctx, "fuzzy search executed",
		slog.String("query", query),
		slog.Float64("threshold", threshold),
		slog.Int("hits", len(apps)),
	)
	return apps, nil
}

// Advanced filters the catalog by c. With a query set, apps are first
// ranked by relevance and filtered afterwards, so the result stays in
// relevance order; otherwise catalog order is kept. At most
// domain.AdvancedSearchCap apps are returned.
func (s *SearchService) Advanced(ctx context.Context, c domain.Criteria) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	defer catalog.ObserveRanking("advanced")()

	candidates := snap.Apps
	if strings.TrimSpace(c.Query) != "" {
		candidates = s.scorer.RankIndexed(snap.Apps, snap.Index, c.Query, 0)
	}

	filter := !c.IsEmpty()
	out := make([]domain.App, 0)
	for i := range candidates {
		if filter && !ranking.Matches(&candidates[i], c) {
			continue
		}
		out = append(out, candidates[i])
		if len(out) == domain.AdvancedSearchCap {
			break
		}
	}

	s.logger.DebugContext(ctx, "advanced search executed",
		slog.String("query", c.Query),
		slog.Int("hits", len(out)),
	)
	return out, nil
}

// Get returns one app.
func (s *SearchService) Get(_ context.Context, id string) (*domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	a, ok := snap.Get(id)
	if !ok {
		return nil, apperrors.NotFound("app", id)
	}
	c := a.Clone()
	return &c, nil
}

// All returns the whole snapshot in catalog order.
func (s *SearchService) All(_ context.Context) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Apps, nil
}

// Featured returns featured apps in catalog order.
func (s *SearchService) Featured(_ context.Context, limit int) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	return ranking.Featured(snap.Apps, clampLimit(limit, DefaultListLimit, MaxSearchLimit)), nil
}

// Recent returns the newest apps first.
func (s *SearchService) Recent(_ context.Context, limit int) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	return ranking.Recent(snap.Apps, clampLimit(limit, DefaultListLimit, MaxSearchLimit)), nil
}

// Categories returns the sorted category names.
func (s *SearchService) Categories(_ context.Context) ([]string, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	return domain.CategoryNames(snap.Apps), nil
}

// Category returns the apps of one category in catalog order. name matches
// case-insensitively or by its slug, so "health-fitness" finds
// "Health & Fitness". An unknown category yields an empty list.
func (s *SearchService) Category(_ context.Context, name string) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]domain.App, 0)
	name = strings.TrimSpace(name)
	if name == "" {
		return out, nil
	}
	for i := range snap.Apps {
		c := strings.TrimSpace(snap.Apps[i].Category)
		if strings.EqualFold(c, name) || slug.Equal(c, name) {
			out = append(out, snap.Apps[i])
		}
	}
	return out, nil
}
