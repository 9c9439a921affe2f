// Package postgres stores the catalog in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/goccy/go-json"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/repository"
	"github.com/utafrali/AppStoreGo/pkg/database"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	listAppsSQL = `
		SELECT id, name, developer, category, description, icon, version, tags,
		       rating, review_count, rating_distribution, price, downloads, views,
		       featured, age_rating, contains_ads, added_date
		FROM apps
		ORDER BY added_date, id`

	listReviewsSQL = `
		SELECT id, app_id, username, rating, comment, sentiment, flagged, created_at
		FROM app_reviews
		ORDER BY app_id, created_at, id`

	upsertAppSQL = `
		INSERT INTO apps (id, name, developer, category, description, icon, version, tags,
		                  rating, review_count, rating_distribution, price, downloads, views,
		                  featured, age_rating, contains_ads, added_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			developer = EXCLUDED.developer,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon,
			version = EXCLUDED.version,
			tags = EXCLUDED.tags,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			rating_distribution = EXCLUDED.rating_distribution,
			price = EXCLUDED.price,
			downloads = EXCLUDED.downloads,
			views = EXCLUDED.views,
			featured = EXCLUDED.featured,
			age_rating = EXCLUDED.age_rating,
			contains_ads = EXCLUDED.contains_ads,
			added_date = EXCLUDED.added_date`

	deleteReviewsSQL = `DELETE FROM app_reviews WHERE app_id = $1`

	insertReviewSQL = `
		INSERT INTO app_reviews (id, app_id, username, rating, comment, sentiment, flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

// AppRepository implements repository.AppRepository using PostgreSQL.
type AppRepository struct {
	db database.DBTX
}

// NewAppRepository creates a PostgreSQL-backed app repository.
func NewAppRepository(db database.DBTX) *AppRepository {
	return &AppRepository{db: db}
}

// ListApps loads every app and attaches its reviews.
func (r *AppRepository) ListApps(ctx context.Context) (apps []domain.App, err error) {
	ctx, end := database.TraceQuery(ctx, "ListApps", listAppsSQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listAppsSQL)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	apps = []domain.App{}
	byID := make(map[string]int)
	for rows.Next() {
		var (
			a    domain.App
			dist []byte
		)
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Developer, &a.Category, &a.Description, &a.Icon, &a.Version, &a.Tags,
			&a.Rating, &a.ReviewCount, &dist, &a.Price, &a.Downloads, &a.Views,
			&a.Featured, &a.AgeRating, &a.ContainsAds, &a.AddedDate,
		); err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		if len(dist) > 0 {
			if err := json.Unmarshal(dist, &a.RatingDistribution); err != nil {
				return nil, fmt.Errorf("unmarshal rating distribution of %s: %w", a.ID, err)
			}
		}
		byID[a.ID] = len(apps)
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apps: %w", err)
	}

	if err := r.attachReviews(ctx, apps, byID); err != nil {
		return nil, err
	}
	return repository.NormalizeAll(apps), nil
}

func (r *AppRepository) attachReviews(ctx context.Context, apps []domain.App, byID map[string]int) error {
	rows, err := r.db.Query(ctx, listReviewsSQL)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rv    domain.Review
			appID string
		)
		if err := rows.Scan(&rv.ID, &appID, &rv.User, &rv.Rating, &rv.Comment, &rv.Sentiment, &rv.Flagged, &rv.Date); err != nil {
			return fmt.Errorf("scan review: %w", err)
		}
		i, ok := byID[appID]
		if !ok {
			continue
		}
		apps[i].Reviews = append(apps[i].Reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reviews: %w", err)
	}
	return nil
}

// Save upserts app and replaces its reviews in one transaction.
func (r *AppRepository) Save(ctx context.Context, app *domain.App) (err error) {
	if app.ID == "" {
		return apperrors.InvalidInput("app id is required")
	}
	a := app.Clone()
	a.Normalize()
	if a.AddedDate.IsZero() {
		a.AddedDate = time.Now().UTC()
	}

	dist, err := json.Marshal(a.RatingDistribution)
	if err != nil {
		return fmt.Errorf("marshal rating distribution: %w", err)
	}

	ctx, end := database.TraceQuery(ctx, "SaveApp", upsertAppSQL)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, upsertAppSQL,
		a.ID, a.Name, a.Developer, a.Category, a.Description, a.Icon, a.Version, a.Tags,
		a.Rating, a.ReviewCount, dist, a.Price, a.Downloads, a.Views,
		a.Featured, a.AgeRating, a.ContainsAds, a.AddedDate,
	); err != nil {
		return fmt.Errorf("upsert app: %w", err)
	}

	if _, err = tx.Exec(ctx, deleteReviewsSQL, a.ID); err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	for _, rv := range a.Reviews {
		if _, err = tx.Exec(ctx, insertReviewSQL,
			rv.ID, a.ID, rv.User, rv.Rating, rv.Comment, rv.Sentiment, rv.Flagged, rv.Date,
		); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ repository.AppRepository = (*AppRepository)(nil)
