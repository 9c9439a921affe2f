package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

func TestAppRepository(t *testing.T) {
	ctx := context.Background()
	r := NewAppRepository([]domain.App{{ID: "2", Name: "B"}, {ID: "1", Name: "A", Rating: 9}})

	apps, err := r.ListApps(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "2", apps[0].ID, "insertion order is kept")
	assert.Equal(t, domain.MaxRating, apps[1].Rating, "saved apps are normalized")

	apps[0].Name = "mutated"
	again, _ := r.ListApps(ctx)
	assert.Equal(t, "B", again[0].Name, "listing returns copies")

	require.NoError(t, r.Save(ctx, &domain.App{ID: "2", Name: "B2"}))
	got, err := r.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Name)

	_, err = r.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, r.Save(ctx, &domain.App{}), apperrors.ErrInvalidInput)
}

func TestEngagementStore_WindowCounts(t *testing.T) {
	ctx := context.Background()
	s := NewEngagementStore()
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.IncrView(ctx, "a", now))
	require.NoError(t, s.IncrView(ctx, "a", now.AddDate(0, 0, -6)))
	require.NoError(t, s.IncrView(ctx, "a", now.AddDate(0, 0, -7)))
	require.NoError(t, s.IncrDownload(ctx, "b", now.AddDate(0, 0, -1)))

	views, downloads, err := s.WindowCounts(ctx, 7, now)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2}, views)
	assert.Equal(t, map[string]int64{"b": 1}, downloads)

	views, _, _ = s.WindowCounts(ctx, 1, now)
	assert.Equal(t, map[string]int64{"a": 1}, views)
}

func TestPurchaseStore(t *testing.T) {
	ctx := context.Background()
	s := NewPurchaseStore()
	at := time.Now()

	for _, id := range []string{"a", "b", "c", "a"} {
		require.NoError(t, s.AddPurchase(ctx, "u1", id, at))
	}

	got, err := s.RecentPurchases(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, got)

	got, _ = s.RecentPurchases(ctx, "u1", 2)
	assert.Equal(t, []string{"a", "c"}, got)

	got, _ = s.RecentPurchases(ctx, "nobody", 5)
	assert.Empty(t, got)

	assert.ErrorIs(t, s.AddPurchase(ctx, "", "a", at), apperrors.ErrInvalidInput)
}

func TestPurchaseStore_Bounded(t *testing.T) {
	ctx := context.Background()
	s := NewPurchaseStore()
	for i := 0; i < repository.MaxPurchaseHistory+5; i++ {
		require.NoError(t, s.AddPurchase(ctx, "u", fmt.Sprint(i), time.Now()))
	}
	got, _ := s.RecentPurchases(ctx, "u", 0)
	assert.Len(t, got, repository.MaxPurchaseHistory)
	assert.Equal(t, fmt.Sprint(repository.MaxPurchaseHistory+4), got[0])
}

func TestSearchHistory(t *testing.T) {
	ctx := context.Background()
	h := NewSearchHistory()

	for _, q := range []string{"notes", "racer", "budget", "notes"} {
		require.NoError(t, h.AddQuery(ctx, q))
	}

	got, err := h.RecentQueries(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes", "budget", "racer"}, got)

	got, _ = h.RecentQueries(ctx, 1)
	assert.Equal(t, []string{"notes"}, got)

	assert.ErrorIs(t, h.AddQuery(ctx, ""), apperrors.ErrInvalidInput)

	for i := 0; i < repository.MaxSearchHistory+5; i++ {
		require.NoError(t, h.AddQuery(ctx, fmt.Sprintf("query %d", i)))
	}
	got, _ = h.RecentQueries(ctx, 0)
	assert.Len(t, got, repository.MaxSearchHistory)
	assert.Equal(t, fmt.Sprintf("query %d", repository.MaxSearchHistory+4), got[0])
}
