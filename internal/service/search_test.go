package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository/memory"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	"github.com/utafrali/AppStoreGo/pkg/logger"
)

func float(v float64) *float64 { return &v }

func TestSearchService_Search(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	hits, err := env.search.Search(ctx, "Super Racer", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.SearchHit{ID: "racer", Name: "Super Racer", Developer: "Acme", Category: "Games", Rating: 4.5}, hits[0])

	// Name prefix (80) outranks substring plus boosts (60+5+3).
	hits, err = env.search.Search(ctx, "racer", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "lite", hits[0].ID)
	assert.Equal(t, "racer", hits[1].ID)

	hits, err = env.search.Search(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = env.search.Search(ctx, " a ", 10)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearchService_NotLoaded(t *testing.T) {
	cat := catalog.New(memory.NewAppRepository(fixtureApps()), logger.Discard())
	svc := NewSearchService(cat,
		ranking.NewRelevanceScorer(ranking.DefaultRelevanceWeights()),
		ranking.NewFuzzyMatcher(ranking.JaccardSimilarity, ranking.DefaultFuzzyWeights()),
		nil, logger.Discard())

	_, err := svc.Search(context.Background(), "notes", 5)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	_, err = svc.Categories(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestSearchService_SuggestAndFuzzy(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	names, err := env.search.Suggest(ctx, "rac", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Super Racer", "Racer Lite"}, names)

	apps, err := env.search.Fuzzy(ctx, "racer", DefaultFuzzyThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"racer", "lite"}, ids(apps))

	apps, err = env.search.Fuzzy(ctx, "racer", 7)
	require.NoError(t, err)
	assert.Empty(t, apps, "threshold is clamped to 1")
}

func TestSearchService_Advanced(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	apps, err := env.search.Advanced(ctx, domain.Criteria{MinRating: float(4.0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"racer", "lite", "notes"}, ids(apps))

	apps, err = env.search.Advanced(ctx, domain.Criteria{Query: "lite", NoAds: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"lite"}, ids(apps))

	apps, err = env.search.Advanced(ctx, domain.Criteria{Query: "acme", Category: "finance"})
	require.NoError(t, err)
	assert.Empty(t, apps)

	apps, err = env.search.Advanced(ctx, domain.Criteria{FreeOnly: true, NoAds: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"racer", "lite", "notes"}, ids(apps))

	// A bare query is a relevance search with nothing to filter.
	apps, err = env.search.Advanced(ctx, domain.Criteria{Query: "racer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lite", "racer"}, ids(apps), "prefix match outranks substring match")
}

func TestSearchService_AdvancedIsCapped(t *testing.T) {
	var apps []domain.App
	for i := 0; i < 60; i++ {
		apps = append(apps, domain.App{ID: fmt.Sprint(i), Name: fmt.Sprintf("Tool %d", i)})
	}
	env := newTestEnv(t, apps)

	got, err := env.search.Advanced(context.Background(), domain.Criteria{})
	require.NoError(t, err)
	assert.Len(t, got, domain.AdvancedSearchCap)
	assert.Equal(t, "0", got[0].ID)
}

func TestSearchService_Listings(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	cats, err := env.search.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance", "Games", "Productivity"}, cats)

	games, err := env.search.Category(ctx, "games")
	require.NoError(t, err)
	assert.Equal(t, []string{"racer", "lite"}, ids(games))

	bySlug, err := env.search.Category(ctx, "GAMES ")
	require.NoError(t, err)
	assert.Equal(t, []string{"racer", "lite"}, ids(bySlug))

	none, err := env.search.Category(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, none)

	featured, err := env.search.Featured(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"racer"}, ids(featured))

	recent, err := env.search.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "lite"}, ids(recent))

	all, err := env.search.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSearchService_Get(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	a, err := env.search.Get(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "Notes", a.Name)

	a.Name = "changed"
	again, _ := env.search.Get(ctx, "notes")
	assert.Equal(t, "Notes", again.Name)

	_, err = env.search.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSearchService_SuggestFromHistory(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	_, err := env.search.Search(ctx, "  racing games ", 5)
	require.NoError(t, err)
	_, err = env.search.Search(ctx, "r", 5)
	require.NoError(t, err)

	recent, err := env.history.RecentQueries(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"racing games"}, recent, "short queries are not recorded")

	names, err := env.search.Suggest(ctx, "rac", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"racing games", "Super Racer", "Racer Lite"}, names)
}

type brokenHistory struct{ err error }

func (b brokenHistory) AddQuery(context.Context, string) error { return b.err }
func (b brokenHistory) RecentQueries(context.Context, int) ([]string, error) {
	return nil, b.err
}

func TestSearchService_HistoryErrorsAreNotFatal(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	env.search.history = brokenHistory{err: errors.New("redis down")}
	ctx := context.Background()

	hits, err := env.search.Search(ctx, "racer", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	names, err := env.search.Suggest(ctx, "rac", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Super Racer", "Racer Lite"}, names)
}
