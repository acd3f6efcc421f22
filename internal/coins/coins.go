// Package coins holds the static knowledge the assistant has about the
// supported cryptocurrencies: which words name them and how sustainable
// they are.
package coins

import "strings"

// ID is the canonical identifier of a supported coin. It doubles as the
// CoinGecko coin id.
type ID string

const (
	Bitcoin  ID = "bitcoin"
	Ethereum ID = "ethereum"
	Cardano  ID = "cardano"
)

var supported = []ID{Bitcoin, Ethereum, Cardano}

// aliases maps a lowercase name or ticker to its coin.
var aliases = map[string]ID{
	"bitcoin":  Bitcoin,
	"btc":      Bitcoin,
	"ethereum": Ethereum,
	"eth":      Ethereum,
	"cardano":  Cardano,
	"ada":      Cardano,
}

var titles = map[ID]string{
	Bitcoin:  "Bitcoin",
	Ethereum: "Ethereum",
	Cardano:  "Cardano",
}

// All returns every supported coin in canonical order.
func All() []ID {
	out := make([]ID, len(supported))
	copy(out, supported)
	return out
}

// Lookup resolves a token (name or ticker, any case) to a coin.
func Lookup(token string) (ID, bool) {
	id, ok := aliases[strings.ToLower(token)]
	return id, ok
}

// Valid reports whether id is one of the supported coins.
func (id ID) Valid() bool {
	_, ok := titles[id]
	return ok
}

// Title is the display name, e.g. "Bitcoin".
func (id ID) Title() string {
	if t, ok := titles[id]; ok {
		return t
	}
	s := string(id)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (id ID) String() string {
	return string(id)
}
