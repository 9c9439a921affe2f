package ranking

// MinQueryLength is the shortest trimmed query, in characters, that
// relevance ranking and suggestions will act on.
const MinQueryLength = 2

// PopularityBand adds Boost when an app has strictly more than Above
// downloads. Bands are evaluated in order and the first match wins.
type PopularityBand struct {
	Above int64
	Boost float64
}

// RelevanceWeights is the weight table for query relevance scoring.
type RelevanceWeights struct {
	ExactName     float64
	NamePrefix    float64
	NameSubstring float64
	Developer     float64
	Category      float64
	Description   float64
	// Tag is added once when any tag contains the query. Zero by default.
	Tag        float64
	Featured   float64
	Popularity []PopularityBand
}

// DefaultRelevanceWeights returns the stock relevance weights.
func DefaultRelevanceWeights() RelevanceWeights {
	return RelevanceWeights{
		ExactName:     100,
		NamePrefix:    80,
		NameSubstring: 60,
		Developer:     30,
		Category:      20,
		Description:   10,
		Tag:           0,
		Featured:      5,
		Popularity:    DefaultPopularityBands(),
	}
}

// DefaultPopularityBands returns the download bands >10000, >1000, >100.
func DefaultPopularityBands() []PopularityBand {
	return []PopularityBand{
		{Above: 10000, Boost: 3},
		{Above: 1000, Boost: 2},
		{Above: 100, Boost: 1},
	}
}

// FuzzyWeights scales per-field string similarity in fuzzy search.
type FuzzyWeights struct {
	Name        float64
	Developer   float64
	Description float64
}

// DefaultFuzzyWeights returns name 1.0, developer 0.8, description 0.6.
func DefaultFuzzyWeights() FuzzyWeights {
	return FuzzyWeights{Name: 1.0, Developer: 0.8, Description: 0.6}
}

// SimilarityWeights is the weight table for app-to-app similarity. The stock
// weights sum to 1.0.
type SimilarityWeights struct {
	Category float64
	Tags     float64
	Rating   float64
	Price    float64
}

// DefaultSimilarityWeights returns category 0.3, tags 0.3, rating 0.2, price 0.2.
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{Category: 0.3, Tags: 0.3, Rating: 0.2, Price: 0.2}
}

// TrendWeights is the weight table for trend scoring.
type TrendWeights struct {
	Views     float64
	Downloads float64
	Rating    float64
}

// DefaultTrendWeights returns views 0.3, downloads 0.5, rating 0.2.
func DefaultTrendWeights() TrendWeights {
	return TrendWeights{Views: 0.3, Downloads: 0.5, Rating: 0.2}
}
