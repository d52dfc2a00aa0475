package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SubstringMatcher matches lexicon terms as plain substrings of the message
// after lowercasing and diacritic folding, so "náusea" and "nausea" match
// either spelling. No tokenization or stemming is applied.
type SubstringMatcher struct{}

// NewSubstringMatcher creates a new substring matcher
func NewSubstringMatcher() SubstringMatcher {
	return SubstringMatcher{}
}

// Matches reports whether term occurs in message
func (SubstringMatcher) Matches(message, term string) bool {
	return strings.Contains(Fold(message), Fold(term))
}

// Fold lowercases text and strips combining diacritical marks
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return folded
}
