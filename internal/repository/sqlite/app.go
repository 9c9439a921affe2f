// Package sqlite stores the catalog in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/repository"
	"github.com/utafrali/AppStoreGo/pkg/database"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS apps (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    developer           TEXT NOT NULL DEFAULT '',
    category            TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    icon                TEXT NOT NULL DEFAULT '',
    version             TEXT NOT NULL DEFAULT '',
    tags                TEXT NOT NULL DEFAULT '[]',
    rating              REAL NOT NULL DEFAULT 0,
    review_count        INTEGER NOT NULL DEFAULT 0,
    rating_distribution TEXT NOT NULL DEFAULT '{}',
    price               REAL NOT NULL DEFAULT 0,
    downloads           INTEGER NOT NULL DEFAULT 0,
    views               INTEGER NOT NULL DEFAULT 0,
    featured            INTEGER NOT NULL DEFAULT 0,
    age_rating          TEXT NOT NULL DEFAULT '',
    contains_ads        INTEGER NOT NULL DEFAULT 0,
    added_date          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
    id         TEXT PRIMARY KEY,
    app_id     TEXT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
    username   TEXT NOT NULL DEFAULT '',
    rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment    TEXT NOT NULL DEFAULT '',
    sentiment  TEXT NOT NULL DEFAULT '',
    flagged    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_app_id ON reviews (app_id);
`

const (
	listAppsSQL = `
		SELECT id, name, developer, category, description, icon, version, tags,
		       rating, review_count, rating_distribution, price, downloads, views,
		       featured, age_rating, contains_ads, added_date
		FROM apps
		ORDER BY added_date, id`

	listReviewsSQL = `
		SELECT id, app_id, username, rating, comment, sentiment, flagged, created_at
		FROM reviews
		ORDER BY app_id, created_at, id`

	upsertAppSQL = `
		INSERT INTO apps (id, name, developer, category, description, icon, version, tags,
		                  rating, review_count, rating_distribution, price, downloads, views,
		                  featured, age_rating, contains_ads, added_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			developer = excluded.developer,
			category = excluded.category,
			description = excluded.description,
			icon = excluded.icon,
			version = excluded.version,
			tags = excluded.tags,
			rating = excluded.rating,
			review_count = excluded.review_count,
			rating_distribution = excluded.rating_distribution,
			price = excluded.price,
			downloads = excluded.downloads,
			views = excluded.views,
			featured = excluded.featured,
			age_rating = excluded.age_rating,
			contains_ads = excluded.contains_ads,
			added_date = excluded.added_date`

	deleteReviewsSQL = `DELETE FROM reviews WHERE app_id = ?`

	insertReviewSQL = `
		INSERT INTO reviews (id, app_id, username, rating, comment, sentiment, flagged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// AppRepository implements repository.AppRepository on SQLite.
type AppRepository struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file at path and applies the
// schema.
func Open(ctx context.Context, path string) (*AppRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers anyway; one connection keeps :memory: usable.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &AppRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *AppRepository) Close() error {
	return r.db.Close()
}

// Ping checks that the database is reachable.
func (r *AppRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListApps loads every app with its reviews.
func (r *AppRepository) ListApps(ctx context.Context) (apps []domain.App, err error) {
	ctx, end := database.TraceQueryFor(ctx, database.SystemSQLite, "ListApps", listAppsSQL)
	defer func() { end(err) }()

	rows, err := r.db.QueryContext(ctx, listAppsSQL)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	apps = []domain.App{}
	byID := make(map[string]int)
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
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

func scanApp(rows *sql.Rows) (domain.App, error) {
	var (
		a                 domain.App
		tags, dist, added string
		featured, hasAds  bool
	)
	if err := rows.Scan(
		&a.ID, &a.Name, &a.Developer, &a.Category, &a.Description, &a.Icon, &a.Version, &tags,
		&a.Rating, &a.ReviewCount, &dist, &a.Price, &a.Downloads, &a.Views,
		&featured, &a.AgeRating, &hasAds, &added,
	); err != nil {
		return a, fmt.Errorf("scan app: %w", err)
	}
	a.Featured = featured
	a.ContainsAds = hasAds

	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return a, fmt.Errorf("unmarshal tags of %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(dist), &a.RatingDistribution); err != nil {
		return a, fmt.Errorf("unmarshal rating distribution of %s: %w", a.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, added)
	if err != nil {
		return a, fmt.Errorf("parse added_date of %s: %w", a.ID, err)
	}
	a.AddedDate = t
	return a, nil
}

func (r *AppRepository) attachReviews(ctx context.Context, apps []domain.App, byID map[string]int) error {
	rows, err := r.db.QueryContext(ctx, listReviewsSQL)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rv      domain.Review
			appID   string
			created string
		)
		if err := rows.Scan(&rv.ID, &appID, &rv.User, &rv.Rating, &rv.Comment, &rv.Sentiment, &rv.Flagged, &created); err != nil {
			return fmt.Errorf("scan review: %w", err)
		}
		if rv.Date, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return fmt.Errorf("parse created_at of review %s: %w", rv.ID, err)
		}
		if i, ok := byID[appID]; ok {
			apps[i].Reviews = append(apps[i].Reviews, rv)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reviews: %w", err)
	}
	return nil
}

// Save upserts app and replaces its reviews.
func (r *AppRepository) Save(ctx context.Context, app *domain.App) error {
	return r.ImportApps(ctx, []domain.App{*app})
}

// ImportApps upserts apps in a single transaction. It is how a JSON catalog
// is copied into SQLite.
func (r *AppRepository) ImportApps(ctx context.Context, apps []domain.App) (err error) {
	for i := range apps {
		if apps[i].ID == "" {
			return apperrors.InvalidInput(fmt.Sprintf("app at position %d has no id", i))
		}
	}

	ctx, end := database.TraceQueryFor(ctx, database.SystemSQLite, "ImportApps", upsertAppSQL)
	defer func() { end(err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range apps {
		if err = saveApp(ctx, tx, &apps[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func saveApp(ctx context.Context, tx *sql.Tx, app *domain.App) error {
	a := app.Clone()
	a.Normalize()
	if a.AddedDate.IsZero() {
		a.AddedDate = time.Now().UTC()
	}

	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	dist, err := json.Marshal(a.RatingDistribution)
	if err != nil {
		return fmt.Errorf("marshal rating distribution: %w", err)
	}

	if _, err := tx.ExecContext(ctx, upsertAppSQL,
		a.ID, a.Name, a.Developer, a.Category, a.Description, a.Icon, a.Version, string(tags),
		a.Rating, a.ReviewCount, string(dist), a.Price, a.Downloads, a.Views,
		a.Featured, a.AgeRating, a.ContainsAds, a.AddedDate.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert app %s: %w", a.ID, err)
	}

	if _, err := tx.ExecContext(ctx, deleteReviewsSQL, a.ID); err != nil {
		return fmt.Errorf("delete reviews of %s: %w", a.ID, err)
	}
	for _, rv := range a.Reviews {
		date := rv.Date
		if date.IsZero() {
			date = a.AddedDate
		}
		if _, err := tx.ExecContext(ctx, insertReviewSQL,
			rv.ID, a.ID, rv.User, rv.Rating, rv.Comment, rv.Sentiment, rv.Flagged,
			date.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert review %s: %w", rv.ID, err)
		}
	}
	return nil
}

var _ repository.AppRepository = (*AppRepository)(nil)
