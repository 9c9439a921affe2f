package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository"
)

// RecommendationService builds similar-app and personalized lists.
type RecommendationService struct {
	catalog     *catalog.Catalog
	recommender *ranking.Recommender
	purchases   repository.PurchaseStore
	engagement  *EngagementService
	logger      *slog.Logger
}

// NewRecommendationService creates a new recommendation service. Users
// without a usable purchase history get the trending list from engagement.
func NewRecommendationService(
	cat *catalog.Catalog,
	recommender *ranking.Recommender,
	purchases repository.PurchaseStore,
	engagement *EngagementService,
	logger *slog.Logger,
) *RecommendationService {
	return &RecommendationService{
		catalog:     cat,
		recommender: recommender,
		purchases:   purchases,
		engagement:  engagement,
		logger:      logger,
	}
}

// RecommendationsFor returns the apps most similar to appID. An unknown
// appID yields an empty list, not an error.
func (s *RecommendationService) RecommendationsFor(ctx context.Context, appID string, limit int) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	target, ok := snap.Get(appID)
	if !ok {
		s.logger.DebugContext(ctx, "recommendations for unknown app", slog.String("app_id", appID))
		return []domain.App{}, nil
	}

	defer catalog.ObserveRanking("recommend")()
	return s.recommender.Recommend(target, snap.Apps, clampLimit(limit, ranking.DefaultRecommendLimit, MaxSearchLimit)), nil
}

// Personalized recommends apps similar to the user's recent purchases,
// falling back to trending when the user has none in the catalog.
func (s *RecommendationService) Personalized(ctx context.Context, userID string) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	history, err := s.purchases.RecentPurchases(ctx, userID, repository.MaxPurchaseHistory)
	if err != nil {
		return nil, fmt.Errorf("load purchase history: %w", err)
	}

	done := catalog.ObserveRanking("personalized")
	recs := s.recommender.Personalized(history, snap.Apps)
	done()
	if recs != nil {
		return recs, nil
	}

	s.logger.DebugContext(ctx, "no purchase history, using trending",
		slog.String("user_id", userID),
	)
	return s.engagement.Trending(ctx, ranking.DefaultTrendingLimit, ranking.DefaultTrendingDays)
}
