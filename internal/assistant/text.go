package assistant

import "strings"

// Signature closes every answer.
const Signature = "Message sent by Ngenoh - Your Crypto Guide 🌟"

// Capabilities is the help text. It already ends with the signature.
const Capabilities = `
I'm your Crypto Information Assistant, created by Ngenoh! 🚀

I can help you with:
1. Real-time Cryptocurrency Data:
   - Current prices
   - Market capitalization
   - 24-hour price changes
   - Latest market updates

2. Sustainability Information:
   - Energy usage ratings
   - Sustainability scores
   - Environmental impact

3. Latest News:
   - Recent developments
   - Market updates
   - Project news

4. Supported Cryptocurrencies:
   - Bitcoin (BTC)
   - Ethereum (ETH)
   - Cardano (ADA)

Just ask me anything about these topics! For example:
- "What's Bitcoin's current price?"
- "Tell me about Ethereum's sustainability"
- "Show me Cardano's market cap and news"

` + Signature + "\n"

const (
	// Title and Intro head both chat shells.
	Title = "🤖 Crypto Information Bot by Ngenoh"
	Intro = "Ask me anything about Bitcoin, Ethereum, or Cardano!"

	fetchError      = "Error fetching real-time data"
	newsUnavailable = "News data unavailable"
)

// Sources lists where answer data comes from.
var Sources = []string{
	"Real-time market data: CoinGecko API",
	"Sustainability scores: Static database",
	"Energy usage: Static database",
}

// Credit closes the data sources note.
const Credit = "Created with ❤️ by Ngenoh"

// DataSources renders Sources and Credit as markdown.
func DataSources() string {
	var b strings.Builder
	b.WriteString("## Data Sources\n")
	for _, s := range Sources {
		b.WriteString("- " + s + "\n")
	}
	b.WriteString("\n" + Credit + "\n")
	return b.String()
}

// greetingReplies are keyed by the greeting word that triggered them.
var greetingReplies = map[string][]string{
	"hello":     {"Hello!", "Hi there!", "Hey!", "Greetings!"},
	"hi":        {"Hi!", "Hello!", "Hey there!", "Welcome!"},
	"hey":       {"Hey!", "Hi!", "Hello there!", "Greetings!"},
	"greetings": {"Greetings!", "Hello!", "Welcome!", "Hi there!"},
}

// GreetingReplies returns the possible replies to word.
func GreetingReplies(word string) []string {
	replies := greetingReplies[word]
	out := make([]string, len(replies))
	copy(out, replies)
	return out
}
