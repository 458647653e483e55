package insight

import (
	"fmt"
	"strings"
)

// Suggestion is a canned question chip. Question is what gets asked when the
// chip is picked.
type Suggestion struct {
	Label    string `json:"label"`
	Question string `json:"question"`
}

var suggestions = []Suggestion{
	{"📊 How many reviews?", "How many reviews?"},
	{"⭐ Overall sentiment?", "Overall sentiment?"},
	{"📅 Recent feedback?", "Recent feedback?"},
	{"❤️ What do people love?", "What do people love?"},
	{"⚠️ Common complaints?", "Common complaints?"},
}

// Suggestions returns the question chips offered under a conversation.
func Suggestions() []Suggestion {
	out := make([]Suggestion, len(suggestions))
	copy(out, suggestions)
	return out
}

// Greeting is the assistant's opening message for a product.
func Greeting(productName string) string {
	if strings.TrimSpace(productName) == "" {
		productName = defaultProductRef
	}
	return fmt.Sprintf("Hi! I'm your AI assistant for %s. I can help you understand customer reviews better. Try asking:\n\n"+
		"• How many reviews are there?\n"+
		"• What do customers say about quality?\n"+
		"• When were most reviews posted?\n"+
		"• What are the main complaints?\n"+
		"• Any common praise patterns?", productName)
}
