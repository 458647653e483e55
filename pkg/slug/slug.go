package slug

import (
	"strings"
	"unicode"
)

var fold = map[rune]string{
	'ç': "c", 'ğ': "g", 'ı': "i", 'ö': "o", 'ş': "s", 'ü': "u",
	'á': "a", 'à': "a", 'â': "a", 'ä': "a", 'é': "e", 'è': "e", 'ê': "e",
	'í': "i", 'ó': "o", 'ú': "u", 'ñ': "n", 'ß': "ss", '&': "and",
}

// Generate lowercases name, folds common accented letters to ASCII and joins
// the remaining alphanumeric runs with single hyphens.
//
//	"Wireless Headphones Pro" -> "wireless-headphones-pro"
//	"Çocuk & Bebek"           -> "cocuk-and-bebek"
func Generate(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		s, ok := fold[r]
		if !ok {
			if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
				pendingDash = b.Len() > 0
				continue
			}
			s = string(r)
		}
		if s == "and" {
			pendingDash = b.Len() > 0
		}
		if pendingDash {
			b.WriteByte('-')
			pendingDash = false
		}
		b.WriteString(s)
		if s == "and" {
			pendingDash = true
		}
	}
	return b.String()
}
