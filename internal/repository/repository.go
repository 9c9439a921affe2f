package repository

import (
	"context"
	"time"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

// AppRepository is the source of truth for the catalog. Implementations
// return normalized apps in a stable order and never a nil slice.
type AppRepository interface {
	// ListApps returns the whole catalog with reviews attached.
	ListApps(ctx context.Context) ([]domain.App, error)

	// Save upserts app together with its reviews.
	Save(ctx context.Context, app *domain.App) error
}

// EngagementStore counts views and downloads per app in UTC day buckets.
type EngagementStore interface {
	// IncrView adds one view for appID on the day of at.
	IncrView(ctx context.Context, appID string, at time.Time) error

	// IncrDownload adds one download for appID on the day of at.
	IncrDownload(ctx context.Context, appID string, at time.Time) error

	// WindowCounts sums the buckets of the days UTC days ending with the day
	// of now. Apps without events in the window are absent from the maps.
	WindowCounts(ctx context.Context, days int, now time.Time) (views, downloads map[string]int64, err error)
}

// PurchaseStore keeps each user's purchase history, most recent first.
type PurchaseStore interface {
	// AddPurchase records appID for userID. Repeat purchases move the app to
	// the front instead of duplicating it.
	AddPurchase(ctx context.Context, userID, appID string, at time.Time) error

	// RecentPurchases returns at most n app IDs, newest first.
	RecentPurchases(ctx context.Context, userID string, n int) ([]string, error)
}

// SearchHistory keeps the most recent search queries across all users.
type SearchHistory interface {
	// AddQuery records query as the newest entry. Repeating a query moves
	// it to the front instead of duplicating it.
	AddQuery(ctx context.Context, query string) error

	// RecentQueries returns at most n queries, newest first.
	RecentQueries(ctx context.Context, n int) ([]string, error)
}

const (
	// MaxPurchaseHistory bounds the stored history per user.
	MaxPurchaseHistory = 100

	// MaxSearchHistory bounds the stored search queries.
	MaxSearchHistory = 50
)

// DayKey formats the UTC day bucket of t as YYYYMMDD.
func DayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

// WindowDays returns the day keys of the days UTC days ending at now,
// newest first. days < 1 is treated as 1.
func WindowDays(days int, now time.Time) []string {
	if days < 1 {
		days = 1
	}
	keys := make([]string, days)
	day := now.UTC()
	for i := 0; i < days; i++ {
		keys[i] = DayKey(day.AddDate(0, 0, -i))
	}
	return keys
}

// NormalizeAll normalizes every app in place and returns apps, or an empty
// slice for nil.
func NormalizeAll(apps []domain.App) []domain.App {
	if apps == nil {
		return []domain.App{}
	}
	for i := range apps {
		apps[i].Normalize()
	}
	return apps
}
