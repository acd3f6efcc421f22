package intent

import "strings"

// greetingWords are the recognised openers, in reply-table order.
var greetingWords = []string{"hello", "hi", "hey", "greetings"}

// greetingPrefixes start a greeting followed by more text, e.g. "hi there".
var greetingPrefixes = []string{"hi ", "hello ", "hey "}

var helpPhrases = map[string]bool{
	"help":            true,
	"what can you do": true,
	"capabilities":    true,
}

// Greeting reports whether text is a greeting and which greeting word it
// used. text must already be normalized.
func Greeting(text string) (string, bool) {
	for _, w := range greetingWords {
		if text == w {
			return w, true
		}
	}
	for _, p := range greetingPrefixes {
		if strings.HasPrefix(text, p) {
			return strings.TrimSpace(p), true
		}
	}
	return "", false
}

// IsGreeting is Greeting without the matched word.
func IsGreeting(text string) bool {
	_, ok := Greeting(text)
	return ok
}

// IsHelp reports whether normalized text asks what the assistant can do.
func IsHelp(text string) bool {
	return helpPhrases[text]
}
