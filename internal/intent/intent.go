// Package intent decides which coins and which pieces of information a
// question asks for. Matching is plain keyword membership.
package intent

import (
	"strings"

	"cryptoguide/internal/coins"
)

// Field is one category of information the assistant can report.
type Field uint8

const (
	FieldPrice Field = iota
	FieldMarketCap
	FieldChange
	FieldEnergy
	FieldSustainability
	FieldNews
)

// Fields lists every category in the order answers present them.
var Fields = []Field{FieldPrice, FieldMarketCap, FieldChange, FieldEnergy, FieldSustainability, FieldNews}

var fieldNames = map[Field]string{
	FieldPrice:          "price",
	FieldMarketCap:      "market",
	FieldChange:         "change",
	FieldEnergy:         "energy",
	FieldSustainability: "green",
	FieldNews:           "news",
}

func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return "unknown"
}

var keywords = map[Field][]string{
	FieldPrice:          {"price", "cost", "worth", "value"},
	FieldMarketCap:      {"market", "cap", "capitalization"},
	FieldChange:         {"change", "changed", "movement", "24h", "hours"},
	FieldEnergy:         {"energy", "power", "consumption"},
	FieldSustainability: {"sustainable", "green", "environment"},
	FieldNews:           {"news", "update", "latest", "happening"},
}

// FieldSet is a bit set of Fields.
type FieldSet uint8

func (s FieldSet) Has(f Field) bool {
	return s&(1<<f) != 0
}

func (s FieldSet) With(f Field) FieldSet {
	return s | 1<<f
}

func (s FieldSet) Empty() bool {
	return s == 0
}

// Names lists the set members in presentation order.
func (s FieldSet) Names() []string {
	var out []string
	for _, f := range Fields {
		if s.Has(f) {
			out = append(out, f.String())
		}
	}
	return out
}

// Intent is the outcome of classifying one question.
type Intent struct {
	Coins   []coins.ID
	Fields  FieldSet
	ShowAll bool
}

// Wants reports whether f should appear in the answer.
func (i Intent) Wants(f Field) bool {
	return i.ShowAll || i.Fields.Has(f)
}

// Classify maps preprocessed tokens to the coins and fields requested.
// Coins keep first-mention order without repeats; no coin means all coins.
// No field keyword means every field.
func Classify(tokens []string) Intent {
	var in Intent
	seen := make(map[coins.ID]bool, 3)
	present := make(map[string]bool, len(tokens))

	for _, tok := range tokens {
		present[tok] = true
		if id, ok := coins.Lookup(tok); ok && !seen[id] {
			seen[id] = true
			in.Coins = append(in.Coins, id)
		}
	}
	if len(in.Coins) == 0 {
		in.Coins = coins.All()
	}

	for _, f := range Fields {
		for _, kw := range keywords[f] {
			if present[kw] {
				in.Fields = in.Fields.With(f)
				break
			}
		}
	}
	in.ShowAll = in.Fields.Empty()

	return in
}

// Normalize lowercases and trims a raw message the way greeting and help
// detection expect.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
