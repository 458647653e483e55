package insight

import (
	"strings"

	"github.com/utafrali/reviewhub/internal/domain"
)

const (
	themeGeneral = "• General satisfaction"
	themeEmpty   = "• No reviews in this category"
)

type theme struct {
	bullet string
	terms  []string
}

// themes are scanned in this order. Matching is plain substring containment,
// so "fast" also hits "breakfast".
var themes = []theme{
	{"• Quality", []string{"quality"}},
	{"• Design", []string{"design", "look"}},
	{"• Performance", []string{"performance", "fast"}},
	{"• Battery life", []string{"battery"}},
	{"• Price", []string{"price", "expensive"}},
	{"• Delivery", []string{"delivery", "shipping"}},
}

// Themes lists, one bullet per line, the fixed themes mentioned anywhere in
// the reviews' comments.
func Themes(reviews []domain.Review) string {
	if len(reviews) == 0 {
		return themeEmpty
	}

	comments := make([]string, 0, len(reviews))
	for _, r := range reviews {
		comments = append(comments, strings.ToLower(r.Comment))
	}
	blob := strings.Join(comments, " ")

	var bullets []string
	for _, t := range themes {
		for _, term := range t.terms {
			if strings.Contains(blob, term) {
				bullets = append(bullets, t.bullet)
				break
			}
		}
	}
	if len(bullets) == 0 {
		return themeGeneral
	}
	return strings.Join(bullets, "\n")
}
