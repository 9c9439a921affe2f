package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/AppStoreGo/internal/catalog"
	"github.com/utafrali/AppStoreGo/internal/domain"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
	pkgkafka "github.com/utafrali/AppStoreGo/pkg/kafka"
	"github.com/utafrali/AppStoreGo/pkg/logger"
)

// TopicReviewAdded is published after a review is stored.
var TopicReviewAdded = pkgkafka.Topic("review", "added")

const eventSource = "catalog-search"

// AddReviewInput holds the parameters for adding a review.
type AddReviewInput struct {
	AppID   string
	User    string
	Rating  int
	Comment string
}

// ReviewAddedData is the payload of a review.added event.
type ReviewAddedData struct {
	AppID     string  `json:"app_id"`
	ReviewID  string  `json:"review_id"`
	User      string  `json:"user"`
	Rating    int     `json:"rating"`
	Sentiment string  `json:"sentiment"`
	Flagged   bool    `json:"flagged"`
	AppRating float64 `json:"app_rating"`
}

// ReviewService ingests reviews and keeps app ratings consistent.
type ReviewService struct {
	catalog   *catalog.Catalog
	publisher pkgkafka.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewReviewService creates a new review service. publisher may be nil when
// events are disabled.
func NewReviewService(cat *catalog.Catalog, publisher pkgkafka.Publisher, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		catalog:   cat,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// AddReview appends a review to an app, recomputes its rating, rating
// distribution and review count, stores the app and reloads the snapshot.
func (s *ReviewService) AddReview(ctx context.Context, in AddReviewInput) (*domain.Review, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return nil, apperrors.InvalidInput("user is required")
	}
	if in.Rating < domain.MinReviewRating || in.Rating > domain.MaxReviewRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinReviewRating, domain.MaxReviewRating))
	}

	review := domain.Review{
		ID:        uuid.NewString(),
		User:      user,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		Sentiment: AnalyzeSentiment(in.Comment),
		Flagged:   IsSpam(in.Comment),
		Date:      s.now().UTC(),
	}

	app, err := s.catalog.Update(ctx, in.AppID, func(a *domain.App) error {
		a.Reviews = append(a.Reviews, review)
		a.RecomputeRating()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}

	if review.Flagged {
		s.logger.WarnContext(ctx, "review flagged as potential spam",
			slog.String("app_id", in.AppID),
			slog.String("review_id", review.ID),
		)
	}
	s.logger.InfoContext(ctx, "review added",
		slog.String("app_id", in.AppID),
		slog.String("review_id", review.ID),
		slog.Int("rating", review.Rating),
		slog.Float64("app_rating", app.Rating),
	)

	s.publish(ctx, app, &review)
	return &review, nil
}

// publish emits review.added. The review is already stored, so failures
// are logged only.
func (s *ReviewService) publish(ctx context.Context, app *domain.App, review *domain.Review) {
	if s.publisher == nil {
		return
	}
	event, err := pkgkafka.NewEvent(TopicReviewAdded, app.ID, "app", eventSource, ReviewAddedData{
		AppID:     app.ID,
		ReviewID:  review.ID,
		User:      review.User,
		Rating:    review.Rating,
		Sentiment: review.Sentiment,
		Flagged:   review.Flagged,
		AppRating: app.Rating,
	})
	if err == nil {
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			event.WithCorrelationID(id)
		}
		if uid := logger.UserIDFromContext(ctx); uid != "" {
			event.WithMetadata("user_id", uid)
		}
		err = s.publisher.Publish(ctx, TopicReviewAdded, event)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review event",
			slog.String("app_id", app.ID),
			slog.String("error", err.Error()),
		)
	}
}
