package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/AppStoreGo/internal/domain"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

const legacyCatalog = `[
  {
    "id": "a1",
    "name": "Photo Studio",
    "developer": "Pixel Labs",
    "category": "Photography",
    "description": "Edit photos",
    "app_icon": "icons/photo.png",
    "icon": "icons/photo.png",
    "rating": 4.5,
    "downloads": 1200,
    "views": 5000,
    "featured": true,
    "added_date": "2024-02-10T14:03:22.123456",
    "reviews": [
      {"review_id": "r1", "user_id": "ann", "rating": 5, "comment": "great", "date": "2024-02-11T08:00:00", "helpful_count": 0}
    ]
  },
  {"id": "a2", "name": "Timer", "added_date": "2024-01-01"}
]`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apps_data.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAppRepository_ListLegacyFile(t *testing.T) {
	repo := NewAppRepository(writeFile(t, legacyCatalog))

	apps, err := repo.ListApps(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)

	a := apps[0]
	assert.Equal(t, "Photo Studio", a.Name)
	assert.Equal(t, "icons/photo.png", a.Icon)
	assert.Equal(t, int64(1200), a.Downloads)
	assert.True(t, a.Featured)
	assert.Equal(t, time.Date(2024, 2, 10, 14, 3, 22, 123456000, time.UTC), a.AddedDate)
	require.Len(t, a.Reviews, 1)
	assert.Equal(t, "r1", a.Reviews[0].ID)
	assert.Equal(t, "ann", a.Reviews[0].User)
	assert.Equal(t, 1, a.ReviewCount)

	assert.Equal(t, []string{}, apps[1].Tags)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), apps[1].AddedDate)
}

func TestAppRepository_MissingFileIsEmpty(t *testing.T) {
	repo := NewAppRepository(filepath.Join(t.TempDir(), "none.json"))

	apps, err := repo.ListApps(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)
}

func TestAppRepository_BadFile(t *testing.T) {
	_, err := NewAppRepository(writeFile(t, `{"not":"an array"}`)).ListApps(context.Background())
	assert.Error(t, err)

	_, err = NewAppRepository(writeFile(t, `[{"id":"x","added_date":"yesterday"}]`)).ListApps(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "added_date")
}

func TestAppRepository_SaveRoundTrip(t *testing.T) {
	path := writeFile(t, legacyCatalog)
	repo := NewAppRepository(path)
	ctx := context.Background()

	apps, err := repo.ListApps(ctx)
	require.NoError(t, err)

	updated := apps[0]
	updated.Reviews = append(updated.Reviews, domain.Review{ID: "r2", User: "bob", Rating: 3, Comment: "ok", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	updated.RecomputeRating()
	require.NoError(t, repo.Save(ctx, &updated))
	require.NoError(t, repo.Save(ctx, &domain.App{ID: "a3", Name: "New"}))

	got, err := repo.ListApps(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, 4.0, got[0].Rating)
	assert.Len(t, got[0].Reviews, 2)
	assert.Equal(t, "ann", got[0].Reviews[0].User)
	assert.Equal(t, domain.RatingDistribution{FiveStar: 1, ThreeStar: 1}, got[0].RatingDistribution)

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	assert.ErrorIs(t, repo.Save(ctx, &domain.App{}), apperrors.ErrInvalidInput)
}

func TestAppRepository_WriteAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	repo := NewAppRepository(path)
	require.NoError(t, repo.WriteAll(context.Background(), []domain.App{{ID: "z", Name: "Zed"}}))

	got, err := repo.ListApps(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Zed", got[0].Name)
	assert.Equal(t, path, repo.Path())
}
