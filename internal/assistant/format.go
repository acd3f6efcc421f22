package assistant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"cryptoguide/internal/coins"
	"cryptoguide/internal/intent"
	"cryptoguide/internal/market"
)

// CoinReport is everything known about one coin for a single answer.
// Snapshot is nil when the market data could not be fetched; News is empty
// when it was not requested.
type CoinReport struct {
	Coin           coins.ID
	Snapshot       *market.Snapshot
	Sustainability coins.Sustainability
	News           string
}

// Format renders the reports in order, one block per coin, and appends the
// signature. Fields appear in a fixed order and only when in requested.
func Format(in intent.Intent, reports []CoinReport) string {
	var b strings.Builder
	for _, r := range reports {
		writeBlock(&b, in, r)
	}

	body := b.String()
	if strings.TrimSpace(body) == "" {
		body = Capabilities
	}
	return body + "\n\n" + Signature
}

func writeBlock(b *strings.Builder, in intent.Intent, r CoinReport) {
	fmt.Fprintf(b, "\n%s:\n", r.Coin.Title())

	s := r.Snapshot
	if s == nil {
		b.WriteString(fetchError + "\n")
		return
	}

	if in.Wants(intent.FieldPrice) {
		fmt.Fprintf(b, "Current Price: $%s\n", formatPrice(s.CurrentPrice))
	}
	if in.Wants(intent.FieldMarketCap) {
		fmt.Fprintf(b, "Market Cap: $%s\n", formatWhole(s.MarketCap))
	}
	if in.Wants(intent.FieldChange) {
		fmt.Fprintf(b, "24h Change: %.1f%%\n", s.PriceChange24h)
	}
	if in.Wants(intent.FieldEnergy) {
		fmt.Fprintf(b, "Energy Usage: %s\n", r.Sustainability.EnergyUse)
	}
	if in.Wants(intent.FieldSustainability) {
		fmt.Fprintf(b, "Sustainability Score: %d/100\n", r.Sustainability.ScoreOutOf100())
	}
	if in.Wants(intent.FieldNews) {
		news := r.News
		if news == "" {
			news = newsUnavailable
		}
		fmt.Fprintf(b, "Latest News: %s\n", news)
	}
	fmt.Fprintf(b, "Last Updated: %s\n", s.LastUpdated)
}

// formatPrice groups thousands and rounds to two decimals, e.g. 43,250.50.
func formatPrice(v float64) string {
	return groupThousands(v, 2)
}

// formatWhole groups thousands without decimals, e.g. 850,000,000,000.
func formatWhole(v float64) string {
	return groupThousands(v, 0)
}

func groupThousands(v float64, decimals int) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', decimals, 64)
	whole, frac, hasFrac := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return strconv.FormatFloat(v, 'f', decimals, 64)
	}
	out := humanize.Comma(n)
	if hasFrac {
		out += "." + frac
	}
	if math.Signbit(v) && strings.Trim(s, "0.") != "" {
		out = "-" + out
	}
	return out
}
