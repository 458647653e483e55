package insight

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/utafrali/reviewhub/internal/domain"
)

// Category names the branch of the responder that produced an answer.
type Category string

const (
	CategoryCount     Category = "count"
	CategorySentiment Category = "sentiment"
	CategoryTemporal  Category = "temporal"
	CategoryPraise    Category = "praise"
	CategoryComplaint Category = "complaint"
	CategoryPricing   Category = "pricing"
	CategorySummary   Category = "summary"
)

// Categories lists every category in match order, the fallback last.
func Categories() []Category {
	out := make([]Category, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.category)
	}
	return append(out, CategorySummary)
}

// Answer is the responder's reply to one question.
type Answer struct {
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

const (
	recentLimit       = 3
	recentExcerpt     = 80
	pricingLimit      = 2
	pricingExcerpt    = 100
	recentDateLayout  = "1/2/2006"
	defaultProductRef = "this product"

	// NoPricingMentions is returned verbatim when no review talks about price.
	NoPricingMentions = "💰 No customers specifically mentioned pricing in their reviews."
)

type rule struct {
	category Category
	keywords []string
	answer   func(reviews []domain.Review) string
}

// rules are tried in order and the first keyword hit wins. The order is part
// of the contract: "what do people love recently?" is a temporal question.
var rules = []rule{
	{CategoryCount, []string{"how many", "count"}, answerCount},
	{CategorySentiment, []string{"sentiment", "overall"}, answerSentiment},
	{CategoryTemporal, []string{"when", "date", "recent"}, answerRecent},
	{CategoryPraise, []string{"love", "praise", "positive"}, answerPraise},
	{CategoryComplaint, []string{"complaint", "problem", "negative"}, answerComplaints},
	{CategoryPricing, []string{"price", "cost"}, answerPricing},
}

// Classify returns the category a question falls into.
func Classify(question string) Category {
	if r, ok := match(question); ok {
		return r.category
	}
	return CategorySummary
}

func match(question string) (rule, bool) {
	q := strings.ToLower(question)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(q, kw) {
				return r, true
			}
		}
	}
	return rule{}, false
}

// Analyze answers question over reviews. productName is only used by the
// fallback summary. reviews is never modified.
func Analyze(question string, reviews []domain.Review, productName string) Answer {
	if r, ok := match(question); ok {
		return Answer{Category: r.category, Text: r.answer(reviews)}
	}
	return Answer{Category: CategorySummary, Text: summary(reviews, productName)}
}

// Respond is Analyze without the category.
func Respond(question string, reviews []domain.Review, productName string) string {
	return Analyze(question, reviews, productName).Text
}

func answerCount(reviews []domain.Review) string {
	return fmt.Sprintf("There are **%d customer reviews** for this product.\n\nRating breakdown:\n%s",
		len(reviews), Breakdown(Aggregate(reviews)))
}

// Breakdown renders the histogram as five lines, 5 stars first:
//
//	5⭐ ██████ 3 (60%)
func Breakdown(s Stats) string {
	lines := make([]string, 0, len(s.Histogram))
	for _, b := range s.Histogram {
		bar := strings.Repeat("█", b.Percentage/10)
		lines = append(lines, fmt.Sprintf("%d⭐ %s %d (%d%%)", b.Stars, bar, b.Count, b.Percentage))
	}
	return strings.Join(lines, "\n")
}

var sentimentHeadlines = map[string]string{
	SentimentVeryPositive:      "😊 Very Positive",
	SentimentGenerallyPositive: "🙂 Generally Positive",
	SentimentMixed:             "😐 Mixed",
	SentimentNegative:          "😞 Negative",
	SentimentNoData:            "📭 No reviews yet",
}

func answerSentiment(reviews []domain.Review) string {
	s := Aggregate(reviews)
	return fmt.Sprintf("%s (%.1f/5.0)\n\n✅ Positive reviews: %d\n❌ Negative reviews: %d",
		sentimentHeadlines[s.Sentiment()], s.AverageRating, s.PositiveCount, s.NegativeCount)
}

// MostRecent returns up to n reviews ordered newest first, without touching
// the input slice.
func MostRecent(reviews []domain.Review, n int) []domain.Review {
	sorted := slices.Clone(reviews)
	slices.SortStableFunc(sorted, func(a, b domain.Review) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sorted[:min(n, len(sorted))]
}

func answerRecent(reviews []domain.Review) string {
	recent := MostRecent(reviews, recentLimit)
	if len(recent) == 0 {
		return "📅 Most recent reviews:\n\nNo reviews yet."
	}
	entries := make([]string, 0, len(recent))
	for _, r := range recent {
		entries = append(entries, fmt.Sprintf("%s - %s★ (%s) \"%s...\"",
			r.DisplayName(), formatRating(r.Rating), r.CreatedAt.Format(recentDateLayout), excerpt(r.Comment, recentExcerpt)))
	}
	return "📅 Most recent reviews:\n\n" + strings.Join(entries, "\n\n")
}

func answerPraise(reviews []domain.Review) string {
	positive := filter(reviews, IsPositive)
	return fmt.Sprintf("❤️ What customers love:\n\n%s\n\n📝 Sample positive review:\n\"%s\"",
		Themes(positive), sample(positive, "No positive reviews yet."))
}

func answerComplaints(reviews []domain.Review) string {
	negative := filter(reviews, IsNegative)
	return fmt.Sprintf("⚠️ Common complaints:\n\n%s\n\n📝 Sample negative review:\n\"%s\"",
		Themes(negative), sample(negative, "No negative reviews yet."))
}

var pricingTerms = []string{"price", "expensive", "cheap"}

// MentionsPricing reports whether the comment talks about price.
func MentionsPricing(r domain.Review) bool {
	c := strings.ToLower(r.Comment)
	for _, t := range pricingTerms {
		if strings.Contains(c, t) {
			return true
		}
	}
	return false
}

func answerPricing(reviews []domain.Review) string {
	mentions := filter(reviews, MentionsPricing)
	if len(mentions) == 0 {
		return NoPricingMentions
	}
	entries := make([]string, 0, pricingLimit)
	for _, r := range mentions[:min(pricingLimit, len(mentions))] {
		entries = append(entries, fmt.Sprintf("\"%s...\" - %s", excerpt(r.Comment, pricingExcerpt), r.DisplayName()))
	}
	return fmt.Sprintf("💰 %d reviews mention pricing:\n\n%s", len(mentions), strings.Join(entries, "\n\n"))
}

func summary(reviews []domain.Review, productName string) string {
	if strings.TrimSpace(productName) == "" {
		productName = defaultProductRef
	}
	s := Aggregate(reviews)
	return fmt.Sprintf("📊 Summary for %s:\n\n"+
		"Total Reviews: %d\n"+
		"Average Rating: %.1f⭐\n"+
		"Positive Reviews: %d (%d%%)\n\n"+
		"Try asking me specific questions about pricing, quality, or recent feedback!",
		productName, s.TotalReviews, s.AverageRating, s.PositiveCount, s.PositivePercent())
}

func filter(reviews []domain.Review, keep func(domain.Review) bool) []domain.Review {
	var out []domain.Review
	for _, r := range reviews {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sample(reviews []domain.Review, placeholder string) string {
	if len(reviews) == 0 || reviews[0].Comment == "" {
		return placeholder
	}
	return reviews[0].Comment
}

// excerpt returns the first n characters of s.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
