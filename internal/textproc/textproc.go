// Package textproc turns free text into the normalized tokens used for
// keyword matching.
package textproc

import (
	"strings"
	"unicode"
)

// Preprocess lowercases text, splits it into words and drops stopwords.
// Token order follows the input.
func Preprocess(text string) []string {
	words := Tokenize(text)
	tokens := words[:0]
	for _, w := range words {
		if IsStopword(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// Tokenize lowercases text and returns its alphanumeric runs. Punctuation,
// symbols and apostrophes separate words, so "bitcoin's" yields "bitcoin"
// and "s".
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
