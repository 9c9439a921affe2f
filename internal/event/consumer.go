package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/service"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	pkgkafka "github.com/utafrali/AppStoreGo/pkg/kafka"
)

// Kafka topics consumed by the catalog-search service.
var (
	TopicAppCreated    = pkgkafka.Topic("app", "created")
	TopicAppUpdated    = pkgkafka.Topic("app", "updated")
	TopicAppDeleted    = pkgkafka.Topic("app", "deleted")
	TopicAppViewed     = pkgkafka.Topic("app", "viewed")
	TopicAppDownloaded = pkgkafka.Topic("app", "downloaded")
	TopicAppPurchased  = pkgkafka.Topic("app", "purchased")
)

// Topics lists every topic the consumer group subscribes to.
func Topics() []string {
	return []string{
		TopicAppCreated, TopicAppUpdated, TopicAppDeleted,
		TopicAppViewed, TopicAppDownloaded, TopicAppPurchased,
	}
}

// AppEventData is the payload of catalog change events.
type AppEventData struct {
	AppID string `json:"app_id"`
}

// EngagementEventData is the payload of view, download and purchase events.
type EngagementEventData struct {
	AppID  string `json:"app_id"`
	UserID string `json:"user_id,omitempty"`
}

// Consumer applies app events to the catalog snapshot and the engagement
// stores.
type Consumer struct {
	catalog    *catalog.Catalog
	engagement *service.EngagementService
	logger     *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(cat *catalog.Catalog, engagement *service.EngagementService, logger *slog.Logger) *Consumer {
	return &Consumer{
		catalog:    cat,
		engagement: engagement,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicAppCreated, TopicAppUpdated, TopicAppDeleted:
		return c.handleCatalogChange(ctx, event)
	case TopicAppViewed:
		return c.handleEngagement(ctx, event, func(data EngagementEventData, at time.Time) error {
			return c.engagement.RecordViewAt(ctx, data.AppID, at)
		})
	case TopicAppDownloaded:
		return c.handleEngagement(ctx, event, func(data EngagementEventData, at time.Time) error {
			return c.engagement.RecordDownloadAt(ctx, data.AppID, at)
		})
	case TopicAppPurchased:
		return c.handleEngagement(ctx, event, func(data EngagementEventData, at time.Time) error {
			return c.engagement.RecordPurchaseAt(ctx, data.UserID, data.AppID, at)
		})
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleCatalogChange reloads the snapshot so the change becomes visible to
// every ranking operation at once.
func (c *Consumer) handleCatalogChange(ctx context.Context, event *pkgkafka.Event) error {
	var data AppEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	if err := c.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh catalog from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "catalog refreshed from event",
		slog.String("event_type", event.EventType),
		slog.String("app_id", data.AppID),
	)
	return nil
}

// handleEngagement decodes the payload and records it at the event time.
// Events about apps that are not in the catalog are dropped, since
// retrying cannot make them succeed.
func (c *Consumer) handleEngagement(
	ctx context.Context,
	event *pkgkafka.Event,
	record func(EngagementEventData, time.Time) error,
) error {
	var data EngagementEventData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	at := event.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	if err := record(data, at); err != nil {
		if isPermanent(err) {
			c.logger.WarnContext(ctx, "dropping engagement event",
				slog.String("event_type", event.EventType),
				slog.String("event_id", event.EventID),
				slog.String("app_id", data.AppID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		return fmt.Errorf("record %s event: %w", event.EventType, err)
	}

	c.logger.DebugContext(ctx, "engagement event recorded",
		slog.String("event_type", event.EventType),
		slog.String("app_id", data.AppID),
	)
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrInvalidInput)
}
