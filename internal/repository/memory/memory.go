// Package memory holds process-local repository implementations for
// development, the CLI and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

// AppRepository keeps the catalog in memory in insertion order.
type AppRepository struct {
	mu    sync.RWMutex
	order []string
	apps  map[string]domain.App
}

// NewAppRepository seeds a repository with apps.
func NewAppRepository(apps []domain.App) *AppRepository {
	r := &AppRepository{apps: make(map[string]domain.App, len(apps))}
	for i := range apps {
		_ = r.Save(context.Background(), &apps[i])
	}
	return r
}

// ListApps returns deep copies of every app.
func (r *AppRepository) ListApps(_ context.Context) ([]domain.App, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.App, 0, len(r.order))
	for _, id := range r.order {
		a := r.apps[id]
		out = append(out, a.Clone())
	}
	return out, nil
}

// Get returns one app by id.
func (r *AppRepository) Get(_ context.Context, id string) (*domain.App, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.apps[id]
	if !ok {
		return nil, apperrors.NotFound("app", id)
	}
	c := a.Clone()
	return &c, nil
}

// Save upserts a copy of app.
func (r *AppRepository) Save(_ context.Context, app *domain.App) error {
	if app.ID == "" {
		return apperrors.InvalidInput("app id is required")
	}
	c := app.Clone()
	c.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.apps[c.ID] = c
	return nil
}

// EngagementStore counts events per day bucket.
type EngagementStore struct {
	mu        sync.Mutex
	views     map[string]map[string]int64
	downloads map[string]map[string]int64
}

// NewEngagementStore creates an empty store.
func NewEngagementStore() *EngagementStore {
	return &EngagementStore{
		views:     make(map[string]map[string]int64),
		downloads: make(map[string]map[string]int64),
	}
}

func incr(buckets map[string]map[string]int64, day, appID string) {
	b, ok := buckets[day]
	if !ok {
		b = make(map[string]int64)
		buckets[day] = b
	}
	b[appID]++
}

// IncrView implements repository.EngagementStore.
func (s *EngagementStore) IncrView(_ context.Context, appID string, at time.Time) error {
	s.mu.Lock()
	incr(s.views, repository.DayKey(at), appID)
	s.mu.Unlock()
	return nil
}

// IncrDownload implements repository.EngagementStore.
func (s *EngagementStore) IncrDownload(_ context.Context, appID string, at time.Time) error {
	s.mu.Lock()
	incr(s.downloads, repository.DayKey(at), appID)
	s.mu.Unlock()
	return nil
}

// WindowCounts implements repository.EngagementStore.
func (s *EngagementStore) WindowCounts(_ context.Context, days int, now time.Time) (map[string]int64, map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make(map[string]int64)
	downloads := make(map[string]int64)
	for _, day := range repository.WindowDays(days, now) {
		for id, n := range s.views[day] {
			views[id] += n
		}
		for id, n := range s.downloads[day] {
			downloads[id] += n
		}
	}
	return views, downloads, nil
}

// PurchaseStore keeps per-user histories in recording order.
type PurchaseStore struct {
	mu      sync.Mutex
	history map[string][]string
}

// NewPurchaseStore creates an empty store.
func NewPurchaseStore() *PurchaseStore {
	return &PurchaseStore{history: make(map[string][]string)}
}

// AddPurchase implements repository.PurchaseStore.
func (s *PurchaseStore) AddPurchase(_ context.Context, userID, appID string, _ time.Time) error {
	if userID == "" || appID == "" {
		return apperrors.InvalidInput("user id and app id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := []string{appID}
	for _, id := range s.history[userID] {
		if id != appID {
			h = append(h, id)
		}
	}
	if len(h) > repository.MaxPurchaseHistory {
		h = h[:repository.MaxPurchaseHistory]
	}
	s.history[userID] = h
	return nil
}

// RecentPurchases implements repository.PurchaseStore.
func (s *PurchaseStore) RecentPurchases(_ context.Context, userID string, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[userID]
	if n <= 0 || n > len(h) {
		n = len(h)
	}
	return append([]string{}, h[:n]...), nil
}

// SearchHistory keeps recent queries newest first.
type SearchHistory struct {
	mu      sync.Mutex
	queries []string
}

// NewSearchHistory creates an empty history.
func NewSearchHistory() *SearchHistory {
	return &SearchHistory{}
}

// AddQuery implements repository.SearchHistory.
func (h *SearchHistory) AddQuery(_ context.Context, query string) error {
	if query == "" {
		return apperrors.InvalidInput("query is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	q := []string{query}
	for _, old := range h.queries {
		if old != query {
			q = append(q, old)
		}
	}
	if len(q) > repository.MaxSearchHistory {
		q = q[:repository.MaxSearchHistory]
	}
	h.queries = q
	return nil
}

// RecentQueries implements repository.SearchHistory.
func (h *SearchHistory) RecentQueries(_ context.Context, n int) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.queries) {
		n = len(h.queries)
	}
	return append([]string{}, h.queries[:n]...), nil
}

var (
	_ repository.AppRepository   = (*AppRepository)(nil)
	_ repository.EngagementStore = (*EngagementStore)(nil)
	_ repository.PurchaseStore   = (*PurchaseStore)(nil)
	_ repository.SearchHistory   = (*SearchHistory)(nil)
)
