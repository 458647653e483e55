package domain

import (
	"strings"
	"time"
)

// AnonymousReviewer is the display name stored when a review is submitted
// without one.
const AnonymousReviewer = "Anonymous"

// MinCommentLength is the minimum trimmed comment length, in characters.
const MinCommentLength = 10

// Review is one user-submitted rating and comment. Reviews are created and
// marked helpful, never edited or deleted. Ratings lie in [0,5] and may be
// fractional.
type Review struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ReviewerName string    `json:"reviewer_name"`
	Rating       float64   `json:"rating"`
	Comment      string    `json:"comment"`
	HelpfulCount int       `json:"helpful_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName returns the reviewer name, or AnonymousReviewer when blank.
func (r Review) DisplayName() string {
	if name := strings.TrimSpace(r.ReviewerName); name != "" {
		return name
	}
	return AnonymousReviewer
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ProductID    string
	ReviewerName string
	Rating       float64
	Comment      string
}

// Normalize trims the text fields and applies the anonymous default.
func (in *CreateReviewInput) Normalize() {
	in.ReviewerName = strings.TrimSpace(in.ReviewerName)
	if in.ReviewerName == "" {
		in.ReviewerName = AnonymousReviewer
	}
	in.Comment = strings.TrimSpace(in.Comment)
}
