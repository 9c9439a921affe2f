package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/AppStoreGo/internal/domain"
)

func filterCatalog() []domain.App {
	return []domain.App{
		{ID: "1", Name: "Paid Puzzle", Category: "Games", Price: 4.99, Rating: 3.5, AgeRating: "4+"},
		{ID: "2", Name: "Free Notes", Category: "Productivity", Price: 0, Rating: 4.0, AgeRating: "4+"},
		{ID: "3", Name: "Ad Shooter", Category: "games", Price: 0, Rating: 4.8, AgeRating: "17+", ContainsAds: true},
		{ID: "4", Name: "New App", Category: "Utilities", Price: 1.99, Rating: 0, AgeRating: "12+"},
	}
}

func TestFilter_MinRatingScenario(t *testing.T) {
	got := Filter(filterCatalog(), domain.Criteria{MinRating: ptr(4.0)})
	assert.Equal(t, []string{"2", "3"}, ids(got))
}

func TestFilter_Criteria(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.Criteria
		want     []string
	}{
		{"empty", domain.Criteria{}, []string{"1", "2", "3", "4"}},
		{"min price", domain.Criteria{MinPrice: ptr(1.99)}, []string{"1", "4"}},
		{"max price", domain.Criteria{MaxPrice: ptr(1.99)}, []string{"2", "3", "4"}},
		{"price range", domain.Criteria{MinPrice: ptr(1), MaxPrice: ptr(3)}, []string{"4"}},
		{"category ignores case", domain.Criteria{Category: "GAMES"}, []string{"1", "3"}},
		{"age rating exact", domain.Criteria{AgeRating: "4+"}, []string{"1", "2"}},
		{"age rating is case sensitive", domain.Criteria{AgeRating: "17+ "}, []string{}},
		{"free only", domain.Criteria{FreeOnly: true}, []string{"2", "3"}},
		{"no ads", domain.Criteria{NoAds: true}, []string{"1", "2", "4"}},
		{"combined", domain.Criteria{FreeOnly: true, NoAds: true, MinRating: ptr(3)}, []string{"2"}},
		{"nothing matches", domain.Criteria{Category: "Finance"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(filterCatalog(), tt.criteria)))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	criteria := []domain.Criteria{
		{MinRating: ptr(4)},
		{Category: "games", NoAds: true},
		{MinPrice: ptr(0.5), MaxPrice: ptr(10)},
		{FreeOnly: true},
	}
	for _, c := range criteria {
		once := Filter(filterCatalog(), c)
		twice := Filter(once, c)
		assert.Equal(t, ids(once), ids(twice))
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	apps := filterCatalog()
	before := ids(apps)

	_ = Filter(apps, domain.Criteria{Category: "Games"})

	assert.Equal(t, before, ids(apps))
	assert.Equal(t, "Paid Puzzle", apps[0].Name)
}

func TestFilter_MalformedAppValuesFailOpen(t *testing.T) {
	apps := []domain.App{
		{ID: "nan-price", Price: math.NaN(), Rating: 4.5},
		{ID: "inf-price", Price: math.Inf(1), Rating: 4.5},
		{ID: "neg-price", Price: -3, Rating: 4.5},
		{ID: "nan-rating", Price: 2, Rating: math.NaN()},
		{ID: "ok", Price: 2, Rating: 4.5},
	}

	got := Filter(apps, domain.Criteria{MinPrice: ptr(1), MaxPrice: ptr(5)})
	assert.Equal(t, []string{"nan-price", "inf-price", "neg-price", "nan-rating", "ok"}, ids(got))

	got = Filter(apps, domain.Criteria{MinRating: ptr(4)})
	assert.Equal(t, []string{"nan-price", "inf-price", "neg-price", "nan-rating", "ok"}, ids(got))

	got = Filter(apps, domain.Criteria{MinRating: ptr(4.6)})
	assert.Equal(t, []string{"nan-rating"}, ids(got))
}

func TestFilter_NonFiniteCriteriaAreSkipped(t *testing.T) {
	got := Filter(filterCatalog(), domain.Criteria{MinPrice: ptr(math.NaN()), MaxPrice: ptr(math.Inf(-1))})
	assert.Len(t, got, 4)
}

func TestFilter_MissingPriceIsFree(t *testing.T) {
	apps := []domain.App{{ID: "1", Name: "No Price"}}
	assert.Len(t, Filter(apps, domain.Criteria{FreeOnly: true, MaxPrice: ptr(0)}), 1)
}
