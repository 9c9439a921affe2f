package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

const (
	viewsPrefix     = "appstore:views:"
	downloadsPrefix = "appstore:downloads:"
	purchasesPrefix = "appstore:purchases:"
	historyKey      = "appstore:search:history"
)

// EngagementStore keeps one hash per UTC day and counter kind, field = app ID.
// Buckets expire after retention.
type EngagementStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewEngagementStore creates a store. retention should cover the longest
// trending window that will be requested.
func NewEngagementStore(client redis.UniversalClient, retention time.Duration) *EngagementStore {
	return &EngagementStore{client: client, retention: retention}
}

func (s *EngagementStore) incr(ctx context.Context, prefix, appID string, at time.Time) error {
	key := prefix + repository.DayKey(at)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, key, appID, 1)
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis incr %s: %w", key, err)
	}
	return nil
}

// IncrView implements repository.EngagementStore.
func (s *EngagementStore) IncrView(ctx context.Context, appID string, at time.Time) error {
	return s.incr(ctx, viewsPrefix, appID, at)
}

// IncrDownload implements repository.EngagementStore.
func (s *EngagementStore) IncrDownload(ctx context.Context, appID string, at time.Time) error {
	return s.incr(ctx, downloadsPrefix, appID, at)
}

// WindowCounts implements repository.EngagementStore.
func (s *EngagementStore) WindowCounts(ctx context.Context, days int, now time.Time) (map[string]int64, map[string]int64, error) {
	keys := repository.WindowDays(days, now)

	pipe := s.client.Pipeline()
	viewCmds := make([]*redis.MapStringStringCmd, len(keys))
	downloadCmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, day := range keys {
		viewCmds[i] = pipe.HGetAll(ctx, viewsPrefix+day)
		downloadCmds[i] = pipe.HGetAll(ctx, downloadsPrefix+day)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, nil, fmt.Errorf("redis window counts: %w", err)
	}

	views, err := sumBuckets(viewCmds)
	if err != nil {
		return nil, nil, err
	}
	downloads, err := sumBuckets(downloadCmds)
	if err != nil {
		return nil, nil, err
	}
	return views, downloads, nil
}

func sumBuckets(cmds []*redis.MapStringStringCmd) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, cmd := range cmds {
		for id, raw := range cmd.Val() {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse counter for %s: %w", id, err)
			}
			out[id] += n
		}
	}
	return out, nil
}

// PurchaseStore keeps one list per user, newest first.
type PurchaseStore struct {
	client redis.UniversalClient
}

// NewPurchaseStore creates a store.
func NewPurchaseStore(client redis.UniversalClient) *PurchaseStore {
	return &PurchaseStore{client: client}
}

// AddPurchase implements repository.PurchaseStore.
func (s *PurchaseStore) AddPurchase(ctx context.Context, userID, appID string, _ time.Time) error {
	if userID == "" || appID == "" {
		return apperrors.InvalidInput("user id and app id are required")
	}
	key := purchasesPrefix + userID
	pipe := s.client.TxPipeline()
	pipe.LRem(ctx, key, 0, appID)
	pipe.LPush(ctx, key, appID)
	pipe.LTrim(ctx, key, 0, repository.MaxPurchaseHistory-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis add purchase: %w", err)
	}
	return nil
}

// RecentPurchases implements repository.PurchaseStore.
func (s *PurchaseStore) RecentPurchases(ctx context.Context, userID string, n int) ([]string, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	ids, err := s.client.LRange(ctx, purchasesPrefix+userID, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent purchases: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// SearchHistory keeps the recent queries in one capped list, newest first.
type SearchHistory struct {
	client redis.UniversalClient
}

// NewSearchHistory creates a history.
func NewSearchHistory(client redis.UniversalClient) *SearchHistory {
	return &SearchHistory{client: client}
}

// AddQuery implements repository.SearchHistory.
func (h *SearchHistory) AddQuery(ctx context.Context, query string) error {
	if query == "" {
		return apperrors.InvalidInput("query is required")
	}
	pipe := h.client.TxPipeline()
	pipe.LRem(ctx, historyKey, 0, query)
	pipe.LPush(ctx, historyKey, query)
	pipe.LTrim(ctx, historyKey, 0, repository.MaxSearchHistory-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis add query: %w", err)
	}
	return nil
}

// RecentQueries implements repository.SearchHistory.
func (h *SearchHistory) RecentQueries(ctx context.Context, n int) ([]string, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	queries, err := h.client.LRange(ctx, historyKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent queries: %w", err)
	}
	if queries == nil {
		queries = []string{}
	}
	return queries, nil
}

var (
	_ repository.EngagementStore = (*EngagementStore)(nil)
	_ repository.PurchaseStore   = (*PurchaseStore)(nil)
	_ repository.SearchHistory   = (*SearchHistory)(nil)
)
