// Package jsonfile keeps the catalog in a flat JSON array on disk, the
// apps_data.json layout.
package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/utafrali/AppStoreGo/internal/domain"
	"github.com/utafrali/AppStoreGo/internal/repository"
	apperrors "github.com/utafrali/AppStoreGo/pkg/errors"
)

// Accepted added_date / review date layouts, tried in order. Files written by
// older tooling carry local timestamps without a zone; those are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

type fileReview struct {
	ID        string `json:"id,omitempty"`
	ReviewID  string `json:"review_id,omitempty"`
	User      string `json:"user,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Sentiment string `json:"sentiment,omitempty"`
	Flagged   bool   `json:"flagged,omitempty"`
	Date      string `json:"date,omitempty"`
}

type fileApp struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Developer          string                    `json:"developer"`
	Category           string                    `json:"category"`
	Description        string                    `json:"description"`
	Icon               string                    `json:"icon,omitempty"`
	Version            string                    `json:"version,omitempty"`
	Tags               []string                  `json:"tags"`
	Rating             float64                   `json:"rating"`
	ReviewCount        int                       `json:"review_count"`
	RatingDistribution domain.RatingDistribution `json:"rating_distribution"`
	Price              float64                   `json:"price"`
	Downloads          int64                     `json:"downloads"`
	Views              int64                     `json:"views"`
	Featured           bool                      `json:"featured"`
	AgeRating          string                    `json:"age_rating,omitempty"`
	ContainsAds        bool                      `json:"contains_ads"`
	AddedDate          string                    `json:"added_date,omitempty"`
	Reviews            []fileReview              `json:"reviews"`
}

func (f *fileApp) toDomain() (domain.App, error) {
	added, err := parseTime(f.AddedDate)
	if err != nil {
		return domain.App{}, fmt.Errorf("app %s added_date: %w", f.ID, err)
	}
	a := domain.App{
		ID:                 f.ID,
		Name:               f.Name,
		Developer:          f.Developer,
		Category:           f.Category,
		Description:        f.Description,
		Icon:               f.Icon,
		Version:            f.Version,
		Tags:               f.Tags,
		Rating:             f.Rating,
		ReviewCount:        f.ReviewCount,
		RatingDistribution: f.RatingDistribution,
		Price:              f.Price,
		Downloads:          f.Downloads,
		Views:              f.Views,
		Featured:           f.Featured,
		AgeRating:          f.AgeRating,
		ContainsAds:        f.ContainsAds,
		AddedDate:          added,
		Reviews:            make([]domain.Review, 0, len(f.Reviews)),
	}
	for _, r := range f.Reviews {
		date, err := parseTime(r.Date)
		if err != nil {
			return domain.App{}, fmt.Errorf("app %s review date: %w", f.ID, err)
		}
		rv := domain.Review{
			ID:        r.ID,
			User:      r.User,
			Rating:    r.Rating,
			Comment:   r.Comment,
			Sentiment: r.Sentiment,
			Flagged:   r.Flagged,
			Date:      date,
		}
		if rv.ID == "" {
			rv.ID = r.ReviewID
		}
		if rv.User == "" {
			rv.User = r.UserID
		}
		a.Reviews = append(a.Reviews, rv)
	}
	return a, nil
}

func fromDomain(a *domain.App) fileApp {
	f := fileApp{
		ID:                 a.ID,
		Name:               a.Name,
		Developer:          a.Developer,
		Category:           a.Category,
		Description:        a.Description,
		Icon:               a.Icon,
		Version:            a.Version,
		Tags:               a.Tags,
		Rating:             a.Rating,
		ReviewCount:        a.ReviewCount,
		RatingDistribution: a.RatingDistribution,
		Price:              a.Price,
		Downloads:          a.Downloads,
		Views:              a.Views,
		Featured:           a.Featured,
		AgeRating:          a.AgeRating,
		ContainsAds:        a.ContainsAds,
		Reviews:            make([]fileReview, 0, len(a.Reviews)),
	}
	if !a.AddedDate.IsZero() {
		f.AddedDate = a.AddedDate.UTC().Format(time.RFC3339Nano)
	}
	for _, r := range a.Reviews {
		fr := fileReview{
			ID:        r.ID,
			User:      r.User,
			Rating:    r.Rating,
			Comment:   r.Comment,
			Sentiment: r.Sentiment,
			Flagged:   r.Flagged,
		}
		if !r.Date.IsZero() {
			fr.Date = r.Date.UTC().Format(time.RFC3339Nano)
		}
		f.Reviews = append(f.Reviews, fr)
	}
	return f
}

// AppRepository reads and writes the whole file on every call. A missing
// file is an empty catalog.
type AppRepository struct {
	mu   sync.Mutex
	path string
}

// NewAppRepository creates a repository over the file at path.
func NewAppRepository(path string) *AppRepository {
	return &AppRepository{path: path}
}

// Path returns the backing file.
func (r *AppRepository) Path() string {
	return r.path
}

// ListApps decodes the file.
func (r *AppRepository) ListApps(_ context.Context) ([]domain.App, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apps, err := r.read()
	if err != nil {
		return nil, err
	}
	return repository.NormalizeAll(apps), nil
}

func (r *AppRepository) read() ([]domain.App, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return []domain.App{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", r.path, err)
	}

	var records []fileApp
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", r.path, err)
	}
	apps := make([]domain.App, 0, len(records))
	for i := range records {
		a, err := records[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode catalog %s: %w", r.path, err)
		}
		apps = append(apps, a)
	}
	return apps, nil
}

// Save replaces the app with the same ID, or appends it, and rewrites the
// file atomically.
func (r *AppRepository) Save(_ context.Context, app *domain.App) error {
	if app.ID == "" {
		return apperrors.InvalidInput("app id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	apps, err := r.read()
	if err != nil {
		return err
	}
	c := app.Clone()
	c.Normalize()

	replaced := false
	for i := range apps {
		if apps[i].ID == c.ID {
			apps[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		apps = append(apps, c)
	}
	return r.write(apps)
}

// WriteAll replaces the whole catalog.
func (r *AppRepository) WriteAll(_ context.Context, apps []domain.App) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(apps)
}

func (r *AppRepository) write(apps []domain.App) error {
	records := make([]fileApp, 0, len(apps))
	for i := range apps {
		records = append(records, fromDomain(&apps[i]))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace catalog %s: %w", r.path, err)
	}
	return nil
}

var _ repository.AppRepository = (*AppRepository)(nil)
