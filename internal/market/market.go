// Package market fetches live coin data from a CoinGecko compatible API.
package market

import (
	"context"
	"errors"
	"fmt"

	"cryptoguide/internal/coins"
)

// ErrUnavailable is wrapped by every fetch failure: transport errors,
// unexpected status codes, malformed payloads and missing fields.
var ErrUnavailable = errors.New("market data unavailable")

// Snapshot is the live market state of one coin. A Snapshot is only ever
// returned fully populated.
type Snapshot struct {
	Coin           coins.ID
	CurrentPrice   float64
	MarketCap      float64
	PriceChange24h float64
	LastUpdated    string
}

// Fetcher provides market snapshots and project news for a coin.
type Fetcher interface {
	Snapshot(ctx context.Context, id coins.ID) (Snapshot, error)
	Description(ctx context.Context, id coins.ID) (string, error)
}

// StatusError is returned when the provider answers with a non-200 status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %s", e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrUnavailable
}
