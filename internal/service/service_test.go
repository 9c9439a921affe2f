package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository/memory"
	pkgkafka "github.com/utafrali/AppStoreGo/pkg/kafka"
	"github.com/utafrali/AppStoreGo/pkg/logger"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func fixtureApps() []domain.App {
	return []domain.App{
		{ID: "racer", Name: "Super Racer", Developer: "Acme", Category: "Games", Downloads: 15000, Views: 900, Featured: true, Rating: 4.5, AddedDate: day(1), Tags: []string{"racing"}},
		{ID: "lite", Name: "Racer Lite", Developer: "Acme", Category: "Games", Downloads: 50, Views: 10, Rating: 4.0, AddedDate: day(3), Tags: []string{"racing"}},
		{ID: "budget", Name: "Budget Book", Developer: "Money Co", Category: "Finance", Price: 2.99, Rating: 3.5, AddedDate: day(2), ContainsAds: true},
		{ID: "notes", Name: "Notes", Developer: "Paper", Category: "Productivity", Rating: 4.8, Downloads: 2000, Views: 5000, AddedDate: day(5)},
	}
}

type testEnv struct {
	catalog    *catalog.Catalog
	repo       *memory.AppRepository
	store      *memory.EngagementStore
	purchases  *memory.PurchaseStore
	history    *memory.SearchHistory
	search     *SearchService
	engagement *EngagementService
	recs       *RecommendationService
	reviews    *ReviewService
	publisher  *fakePublisher
}

func newTestEnv(t *testing.T, apps []domain.App) *testEnv {
	t.Helper()
	log := logger.Discard()
	repo := memory.NewAppRepository(apps)
	cat := catalog.New(repo, log)
	require.NoError(t, cat.Refresh(context.Background()))

	store := memory.NewEngagementStore()
	purchases := memory.NewPurchaseStore()
	history := memory.NewSearchHistory()
	pub := &fakePublisher{}

	engagement := NewEngagementService(cat, store, purchases, ranking.NewTrendingRanker(ranking.DefaultTrendWeights()), log)
	engagement.now = func() time.Time { return fixedNow }

	reviews := NewReviewService(cat, pub, log)
	reviews.now = func() time.Time { return fixedNow }

	return &testEnv{
		catalog:   cat,
		repo:      repo,
		store:     store,
		purchases: purchases,
		history:   history,
		search: NewSearchService(cat,
			ranking.NewRelevanceScorer(ranking.DefaultRelevanceWeights()),
			ranking.NewFuzzyMatcher(ranking.JaccardSimilarity, ranking.DefaultFuzzyWeights()),
			history, log),
		engagement: engagement,
		recs:       NewRecommendationService(cat, ranking.NewRecommender(ranking.DefaultSimilarityWeights()), purchases, engagement, log),
		reviews:    reviews,
		publisher:  pub,
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func ids(apps []domain.App) []string {
	out := make([]string, len(apps))
	for i := range apps {
		out[i] = apps[i].ID
	}
	return out
}
