package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

// MaxTrendingDays bounds the trending window.
const MaxTrendingDays = 30

// EngagementService records views, downloads and purchases and ranks
// trending apps from the recorded window.
type EngagementService struct {
	catalog   *catalog.Catalog
	store     repository.EngagementStore
	purchases repository.PurchaseStore
	trending  *ranking.TrendingRanker
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngagementService creates a new engagement service.
func NewEngagementService(
	cat *catalog.Catalog,
	store repository.EngagementStore,
	purchases repository.PurchaseStore,
	trending *ranking.TrendingRanker,
	logger *slog.Logger,
) *EngagementService {
	return &EngagementService{
		catalog:   cat,
		store:     store,
		purchases: purchases,
		trending:  trending,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *EngagementService) requireApp(id string) error {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return err
	}
	if _, ok := snap.Get(id); !ok {
		return apperrors.NotFound("app", id)
	}
	return nil
}

// bump applies fn to the stored app so its lifetime counters follow the
// recorded events.
func (s *EngagementService) bump(ctx context.Context, appID string, fn func(*domain.App)) error {
	_, err := s.catalog.Update(ctx, appID, func(a *domain.App) error {
		fn(a)
		return nil
	})
	return err
}

// RecordView counts one view of appID.
func (s *EngagementService) RecordView(ctx context.Context, appID string) error {
	return s.RecordViewAt(ctx, appID, s.now())
}

// RecordViewAt counts one view of appID at the given time in the day
// buckets and in the app's lifetime Views counter.
func (s *EngagementService) RecordViewAt(ctx context.Context, appID string, at time.Time) error {
	if err := s.requireApp(appID); err != nil {
		return err
	}
	if err := s.store.IncrView(ctx, appID, at); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	if err := s.bump(ctx, appID, func(a *domain.App) { a.Views++ }); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	s.logger.DebugContext(ctx, "view recorded", slog.String("app_id", appID))
	return nil
}

// RecordDownload counts one download of appID.
func (s *EngagementService) RecordDownload(ctx context.Context, appID string) error {
	return s.RecordDownloadAt(ctx, appID, s.now())
}

// RecordDownloadAt counts one download of appID at the given time in the
// day buckets and in the app's lifetime Downloads counter.
func (s *EngagementService) RecordDownloadAt(ctx context.Context, appID string, at time.Time) error {
	if err := s.requireApp(appID); err != nil {
		return err
	}
	if err := s.store.IncrDownload(ctx, appID, at); err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	if err := s.bump(ctx, appID, func(a *domain.App) { a.Downloads++ }); err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	s.logger.InfoContext(ctx, "download recorded", slog.String("app_id", appID))
	return nil
}

// RecordPurchase adds appID to the user's purchase history.
func (s *EngagementService) RecordPurchase(ctx context.Context, userID, appID string) error {
	return s.RecordPurchaseAt(ctx, userID, appID, s.now())
}

// RecordPurchaseAt adds appID to the user's purchase history at the given
// time.
func (s *EngagementService) RecordPurchaseAt(ctx context.Context, userID, appID string, at time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.InvalidInput("user id is required")
	}
	if err := s.requireApp(appID); err != nil {
		return err
	}
	if err := s.purchases.AddPurchase(ctx, userID, appID, at); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	s.logger.InfoContext(ctx, "purchase recorded",
		slog.String("user_id", userID),
		slog.String("app_id", appID),
	)
	return nil
}

// Trending ranks apps by views, downloads and rating over the last days
// UTC days. When nothing was recorded in the window at all, each app's
// lifetime counters are used instead; otherwise an app without events in
// the window counts zero views and downloads.
func (s *EngagementService) Trending(ctx context.Context, limit, days int) ([]domain.App, error) {
	snap, err := s.catalog.Snapshot()
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, ranking.DefaultTrendingLimit, MaxSearchLimit)
	days = clampLimit(days, ranking.DefaultTrendingDays, MaxTrendingDays)

	views, downloads, err := s.store.WindowCounts(ctx, days, s.now())
	if err != nil {
		return nil, fmt.Errorf("load engagement window: %w", err)
	}

	var v, d ranking.Counts
	if len(views) > 0 || len(downloads) > 0 {
		v, d = ranking.Counts(views), ranking.Counts(downloads)
		if v == nil {
			v = ranking.Counts{}
		}
		if d == nil {
			d = ranking.Counts{}
		}
	}

	defer catalog.ObserveRanking("trending")()
	return s.trending.Rank(snap.Apps, v, d, limit), nil
}
