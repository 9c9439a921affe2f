package ranking

import (
	"time"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

func newTestApp(id, name string) domain.App {
	return domain.App{
		ID:        id,
		Name:      name,
		Developer: "Indie Dev",
		Category:  "Utilities",
		Tags:      []string{},
		Reviews:   []domain.Review{},
		AddedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func ids(apps []domain.App) []string {
	out := make([]string, len(apps))
	for i := range apps {
		out[i] = apps[i].ID
	}
	return out
}

func ptr(v float64) *float64 { return &v }
