// Package insight derives rating statistics and canned assistant answers from
// an in-memory list of reviews. Everything here is pure and deterministic.
package insight

import (
	"math"

	"github.com/utafrali/reviewhub/internal/domain"
)

// Sentiment bands, checked from the top. Each threshold is inclusive.
const (
	SentimentVeryPositive      = "very positive"
	SentimentGenerallyPositive = "generally positive"
	SentimentMixed             = "mixed"
	SentimentNegative          = "negative"
	SentimentNoData            = "no data"
)

const (
	positiveThreshold = 4.0
	negativeThreshold = 2.0
)

// Bucket is one whole-star bar of the rating histogram.
type Bucket struct {
	Stars      int `json:"stars"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// Stats is the aggregate view of a review list. Histogram always holds five
// buckets ordered 5 stars down to 1 star, and its counts sum to TotalReviews.
type Stats struct {
	AverageRating float64  `json:"average_rating"`
	TotalReviews  int      `json:"total_reviews"`
	PositiveCount int      `json:"positive_count"`
	NegativeCount int      `json:"negative_count"`
	Histogram     []Bucket `json:"histogram"`
}

// Aggregate computes Stats for reviews. Ratings are bucketed by floor and
// clamped into 1..5, so 0 lands in the 1-star bucket and 5.9 in the 5-star one.
// An empty list yields a zero average, not NaN.
func Aggregate(reviews []domain.Review) Stats {
	var (
		counts [6]int
		sum    float64
		s      Stats
	)
	for _, r := range reviews {
		sum += r.Rating
		counts[bucketOf(r.Rating)]++
		switch {
		case IsPositive(r):
			s.PositiveCount++
		case IsNegative(r):
			s.NegativeCount++
		}
	}

	s.TotalReviews = len(reviews)
	if s.TotalReviews > 0 {
		s.AverageRating = sum / float64(s.TotalReviews)
	}

	s.Histogram = make([]Bucket, 0, 5)
	for stars := 5; stars >= 1; stars-- {
		s.Histogram = append(s.Histogram, Bucket{
			Stars:      stars,
			Count:      counts[stars],
			Percentage: Percent(counts[stars], s.TotalReviews),
		})
	}
	return s
}

// Sentiment is SentimentFor(AverageRating), or SentimentNoData for an empty list.
func (s Stats) Sentiment() string {
	if s.TotalReviews == 0 {
		return SentimentNoData
	}
	return SentimentFor(s.AverageRating)
}

// PositivePercent is the share of positive reviews, rounded.
func (s Stats) PositivePercent() int {
	return Percent(s.PositiveCount, s.TotalReviews)
}

// SentimentFor maps an average rating to its band.
func SentimentFor(avg float64) string {
	switch {
	case avg >= 4.0:
		return SentimentVeryPositive
	case avg >= 3.5:
		return SentimentGenerallyPositive
	case avg >= 2.5:
		return SentimentMixed
	default:
		return SentimentNegative
	}
}

// IsPositive reports a rating of 4 or more.
func IsPositive(r domain.Review) bool { return r.Rating >= positiveThreshold }

// IsNegative reports a rating of 2 or less.
func IsNegative(r domain.Review) bool { return r.Rating <= negativeThreshold }

// Percent returns part/total*100 rounded to the nearest integer, 0 when total is 0.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

func bucketOf(rating float64) int {
	b := int(math.Floor(rating))
	return min(max(b, 1), 5)
}
