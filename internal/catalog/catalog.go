// Package catalog holds the immutable catalog snapshot every ranking call
// reads. Writers build a new snapshot and swap it in atomically, so readers
// never observe a partially applied change.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/ranking"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	"github.com/utafrali/AppStoreGo/pkg/tracing"
)

// Snapshot is a point-in-time view of the catalog. Nothing in it may be
// modified after NewSnapshot returns.
type Snapshot struct {
	Apps     []domain.App
	Index    *ranking.Index
	LoadedAt time.Time

	byID map[string]int
}

// NewSnapshot indexes apps. Later duplicates of an ID are dropped so IDs
// stay unique.
func NewSnapshot(apps []domain.App, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		Apps:     make([]domain.App, 0, len(apps)),
		LoadedAt: loadedAt,
		byID:     make(map[string]int, len(apps)),
	}
	for i := range apps {
		if _, dup := s.byID[apps[i].ID]; dup {
			continue
		}
		s.byID[apps[i].ID] = len(s.Apps)
		s.Apps = append(s.Apps, apps[i])
	}
	s.Index = ranking.BuildIndex(s.Apps)
	return s
}

// Get returns the app with id. The pointer aliases the snapshot and must
// only be read.
func (s *Snapshot) Get(id string) (*domain.App, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.Apps[i], true
}

// Len returns the number of apps.
func (s *Snapshot) Len() int {
	return len(s.Apps)
}

// Catalog loads snapshots from an AppRepository.
type Catalog struct {
	repo    repository.AppRepository
	logger  *slog.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]

	// refreshMu serializes reloads and read-modify-write updates.
	refreshMu sync.Mutex
}

// New creates a catalog with no snapshot loaded yet.
func New(repo repository.AppRepository, logger *slog.Logger) *Catalog {
	return &Catalog{repo: repo, logger: logger, now: time.Now}
}

// Snapshot returns the current snapshot, or ErrServiceUnavail before the
// first successful load.
func (c *Catalog) Snapshot() (*Snapshot, error) {
	s := c.current.Load()
	if s == nil {
		return nil, apperrors.ServiceUnavailable("catalog not loaded yet")
	}
	return s, nil
}

// Refresh reloads the catalog. On failure the previous snapshot stays in
// place and the repository error is returned unchanged in kind.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *Catalog) refreshLocked(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "catalog", "catalog.refresh")
	defer span.End()

	start := time.Now()
	apps, err := c.repo.ListApps(ctx)
	if err != nil {
		snapshotRefreshes.WithLabelValues("error").Inc()
		return tracing.RecordError(span, fmt.Errorf("load catalog: %w", err))
	}

	s := NewSnapshot(apps, c.now().UTC())
	span.SetAttributes(attribute.Int("catalog.apps", s.Len()))
	c.current.Store(s)
	snapshotApps.Set(float64(s.Len()))
	snapshotRefreshes.WithLabelValues("ok").Inc()

	c.logger.InfoContext(ctx, "catalog snapshot refreshed",
		slog.Int("apps", s.Len()),
		slog.Int("tokens", s.Index.Vocabulary()),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// Update loads app id from the current snapshot, applies fn to a copy,
// saves it and reloads the snapshot. Updates are serialized with refreshes.
func (c *Catalog) Update(ctx context.Context, id string, fn func(*domain.App) error) (*domain.App, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	s, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	cur, ok := s.Get(id)
	if !ok {
		return nil, apperrors.NotFound("app", id)
	}

	app := cur.Clone()
	if err := fn(&app); err != nil {
		return nil, err
	}
	if err := c.repo.Save(ctx, &app); err != nil {
		return nil, fmt.Errorf("save app %s: %w", id, err)
	}
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return &app, nil
}

// Put saves app as given, creating it when its ID is new, and reloads the
// snapshot.
func (c *Catalog) Put(ctx context.Context, app *domain.App) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if strings.TrimSpace(app.ID) == "" {
		return apperrors.InvalidInput("app id is required")
	}
	if err := c.repo.Save(ctx, app); err != nil {
		return fmt.Errorf("save app %s: %w", app.ID, err)
	}
	return c.refreshLocked(ctx)
}

// Run refreshes every interval until ctx is done. Failures are logged and
// the previous snapshot keeps serving.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.WarnContext(ctx, "catalog refresh failed, keeping previous snapshot",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Check is a health.Checker reporting whether a snapshot is loaded.
func (c *Catalog) Check(_ context.Context) error {
	_, err := c.Snapshot()
	return err
}
