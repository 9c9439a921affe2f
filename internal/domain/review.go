package domain

import (
	"time"
)

// Rating bounds for reviews and aggregated app ratings.
const (
	MinReviewRating = 1
	MaxReviewRating = 5
	MaxRating       = 5.0
)

// Sentiment labels attached to reviews.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Review is a user review owned by exactly one App.
type Review struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Sentiment string    `json:"sentiment,omitempty"`
	Flagged   bool      `json:"flagged,omitempty"`
	Date      time.Time `json:"date"`
}

// RatingDistribution counts reviews per star value.
type RatingDistribution struct {
	FiveStar  int `json:"5_star"`
	FourStar  int `json:"4_star"`
	ThreeStar int `json:"3_star"`
	TwoStar   int `json:"2_star"`
	OneStar   int `json:"1_star"`
}

func (d *RatingDistribution) add(rating int) {
	switch rating {
	case 5:
		d.FiveStar++
	case 4:
		d.FourStar++
	case 3:
		d.ThreeStar++
	case 2:
		d.TwoStar++
	case 1:
		d.OneStar++
	}
}

// RecomputeRating sets Rating, ReviewCount and RatingDistribution from the
// current review set. With no reviews the rating is 0.
func (a *App) RecomputeRating() {
	var (
		sum  int
		dist RatingDistribution
	)
	for _, r := range a.Reviews {
		sum += r.Rating
		dist.add(r.Rating)
	}

	a.ReviewCount = len(a.Reviews)
	a.RatingDistribution = dist
	if a.ReviewCount == 0 {
		a.Rating = 0
		return
	}
	a.Rating = float64(sum) / float64(a.ReviewCount)
}
