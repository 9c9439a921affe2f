package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/internal/domain"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

func openTestRepo(t *testing.T) *AppRepository {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "apps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAppRepository_ImportAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 9, 30, 0, 0, time.UTC) }

	apps := []domain.App{
		{
			ID: "b", Name: "Timer", Category: "Tools", Tags: []string{"clock", "focus"},
			Rating: 4, Downloads: 10, Featured: true, ContainsAds: true, AddedDate: day(2),
			RatingDistribution: domain.RatingDistribution{FourStar: 1},
			Reviews: []domain.Review{{ID: "r1", User: "ann", Rating: 4, Comment: "nice", Sentiment: domain.SentimentNeutral, Date: day(3)}},
		},
		{ID: "a", Name: "Notes", AddedDate: day(1)},
	}
	require.NoError(t, repo.ImportApps(ctx, apps))

	got, err := repo.ListApps(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID, "ordered by added date")
	assert.Equal(t, []string{}, got[0].Tags)
	assert.Empty(t, got[0].Reviews)

	timer := got[1]
	assert.Equal(t, []string{"clock", "focus"}, timer.Tags)
	assert.True(t, timer.Featured)
	assert.True(t, timer.ContainsAds)
	assert.Equal(t, int64(10), timer.Downloads)
	assert.True(t, day(2).Equal(timer.AddedDate))
	assert.Equal(t, domain.RatingDistribution{FourStar: 1}, timer.RatingDistribution)
	require.Len(t, timer.Reviews, 1)
	assert.Equal(t, "ann", timer.Reviews[0].User)
	assert.True(t, day(3).Equal(timer.Reviews[0].Date))
}

func TestAppRepository_SaveReplacesReviews(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	a := domain.App{ID: "a", Name: "Notes", Reviews: []domain.Review{{ID: "r1", User: "ann", Rating: 5}}}
	require.NoError(t, repo.Save(ctx, &a))

	a.Name = "Notes Pro"
	a.Reviews = []domain.Review{{ID: "r2", User: "bob", Rating: 2}, {ID: "r3", User: "cy", Rating: 3}}
	require.NoError(t, repo.Save(ctx, &a))

	got, err := repo.ListApps(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Notes Pro", got[0].Name)
	assert.Len(t, got[0].Reviews, 2)
	assert.False(t, got[0].AddedDate.IsZero())
}

func TestAppRepository_ImportIsAtomic(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	bad := []domain.App{
		{ID: "ok", Name: "Fine"},
		{ID: "bad", Name: "Broken", Reviews: []domain.Review{{ID: "r", Rating: 9}}},
	}
	require.Error(t, repo.ImportApps(ctx, bad))

	got, err := repo.ListApps(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, repo.ImportApps(ctx, []domain.App{{Name: "no id"}}), apperrors.ErrInvalidInput)
}

func TestAppRepository_Ping(t *testing.T) {
	repo := openTestRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
