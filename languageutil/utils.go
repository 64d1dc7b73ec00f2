package languageutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title builds a caser per call since casers keep state and are not safe
// to share between goroutines.
func Title(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// SlotLabel turns a garment slot key into a display label, "item1" becomes
// "Item 1".
func SlotLabel(slot string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range slot {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			prevLetter = false
			continue
		case unicode.IsDigit(r) && prevLetter:
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prevLetter = unicode.IsLetter(r)
	}
	return Title(b.String())
}
