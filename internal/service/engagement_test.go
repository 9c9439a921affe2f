package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

func TestEngagementService_TrendingFallsBackToLifetimeCounters(t *testing.T) {
	env := newTestEnv(t, fixtureApps())

	apps, err := env.engagement.Trending(context.Background(), 0, 0)
	require.NoError(t, err)
	// racer: 900*.3+15000*.5, notes: 5000*.3+2000*.5, lite: 10*.3+50*.5
	assert.Equal(t, []string{"racer", "notes", "lite", "budget"}, ids(apps))
}

func TestEngagementService_TrendingUsesWindow(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, env.engagement.RecordDownload(ctx, "budget"))
	}
	require.NoError(t, env.engagement.RecordView(ctx, "lite"))
	// Outside a 7 day window.
	require.NoError(t, env.engagement.RecordDownloadAt(ctx, "notes", fixedNow.AddDate(0, 0, -20)))

	apps, err := env.engagement.Trending(ctx, 0, 7)
	require.NoError(t, err)
	// Apps without window events fall back to rating alone.
	assert.Equal(t, []string{"budget", "lite", "notes", "racer"}, ids(apps))

	apps, err = env.engagement.Trending(ctx, 2, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget", "notes"}, ids(apps))
}

func TestEngagementService_RecordUnknownApp(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	assert.ErrorIs(t, env.engagement.RecordView(ctx, "ghost"), apperrors.ErrNotFound)
	assert.ErrorIs(t, env.engagement.RecordDownload(ctx, "ghost"), apperrors.ErrNotFound)
	assert.ErrorIs(t, env.engagement.RecordPurchase(ctx, "u1", "ghost"), apperrors.ErrNotFound)
	assert.ErrorIs(t, env.engagement.RecordPurchase(ctx, " ", "notes"), apperrors.ErrInvalidInput)
}

func TestEngagementService_RecordPurchase(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	require.NoError(t, env.engagement.RecordPurchase(ctx, "u1", "notes"))
	require.NoError(t, env.engagement.RecordPurchase(ctx, "u1", "racer"))

	got, err := env.purchases.RecentPurchases(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"racer", "notes"}, got)
}

type brokenStore struct{ err error }

func (b brokenStore) IncrView(context.Context, string, time.Time) error     { return b.err }
func (b brokenStore) IncrDownload(context.Context, string, time.Time) error { return b.err }
func (b brokenStore) WindowCounts(context.Context, int, time.Time) (map[string]int64, map[string]int64, error) {
	return nil, nil, b.err
}

func TestEngagementService_StoreErrorsPropagate(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	boom := errors.New("redis down")
	env.engagement.store = brokenStore{err: boom}
	ctx := context.Background()

	assert.ErrorIs(t, env.engagement.RecordView(ctx, "notes"), boom)
	_, err := env.engagement.Trending(ctx, 5, 7)
	assert.ErrorIs(t, err, boom)
}

func TestEngagementService_RecordBumpsLifetimeCounters(t *testing.T) {
	env := newTestEnv(t, fixtureApps())
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		require.NoError(t, env.engagement.RecordDownload(ctx, "lite"))
		require.NoError(t, env.engagement.RecordView(ctx, "lite"))
	}

	app, err := env.search.Get(ctx, "lite")
	require.NoError(t, err)
	assert.EqualValues(t, 250, app.Downloads)
	assert.EqualValues(t, 210, app.Views)

	// The counters are persisted, so a reload keeps them.
	require.NoError(t, env.catalog.Refresh(ctx))
	stored, err := env.repo.Get(ctx, "lite")
	require.NoError(t, err)
	assert.EqualValues(t, 250, stored.Downloads)
	assert.EqualValues(t, 210, stored.Views)
}
