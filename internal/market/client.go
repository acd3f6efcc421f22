package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cryptoguide/config"
	"cryptoguide/internal/coins"
	"cryptoguide/internal/metrics"
	"cryptoguide/logger"
)

const (
	kindSnapshot    = "snapshot"
	kindDescription = "description"

	ellipsis = "..."
)

// Client talks to the provider's /coins/{id} endpoint. It does not cache;
// wrap it in a CachedFetcher for that.
type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	userAgent    string
	newsLength   int
	httpClient   *http.Client
	log          *logger.Entry
}

// NewClient builds a client from the provider configuration. A nil
// httpClient gets a default one bounded by cfg.Timeout.
func NewClient(cfg config.ProviderConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	newsLength := cfg.NewsLength
	if newsLength <= 0 {
		newsLength = 200
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		apiKeyHeader: cfg.APIKeyHeader,
		userAgent:    cfg.UserAgent,
		newsLength:   newsLength,
		httpClient:   httpClient,
		log:          logger.GetLogger().WithComponent("market"),
	}
}

type coinPayload struct {
	MarketData *struct {
		CurrentPrice             map[string]*float64 `json:"current_price"`
		MarketCap                map[string]*float64 `json:"market_cap"`
		PriceChangePercentage24h *float64            `json:"price_change_percentage_24h"`
		LastUpdated              *string             `json:"last_updated"`
	} `json:"market_data"`
	Description map[string]string `json:"description"`
}

// Snapshot fetches the current USD price, market cap, 24h change and
// last-updated time of id.
func (c *Client) Snapshot(ctx context.Context, id coins.ID) (Snapshot, error) {
	var payload coinPayload
	if err := c.fetch(ctx, id, kindSnapshot, &payload); err != nil {
		return Snapshot{}, err
	}

	md := payload.MarketData
	if md == nil {
		return Snapshot{}, fmt.Errorf("%s: missing market_data: %w", id, ErrUnavailable)
	}
	price := md.CurrentPrice["usd"]
	marketCap := md.MarketCap["usd"]
	switch {
	case price == nil:
		return Snapshot{}, fmt.Errorf("%s: missing current_price.usd: %w", id, ErrUnavailable)
	case marketCap == nil:
		return Snapshot{}, fmt.Errorf("%s: missing market_cap.usd: %w", id, ErrUnavailable)
	case md.PriceChangePercentage24h == nil:
		return Snapshot{}, fmt.Errorf("%s: missing price_change_percentage_24h: %w", id, ErrUnavailable)
	case md.LastUpdated == nil:
		return Snapshot{}, fmt.Errorf("%s: missing last_updated: %w", id, ErrUnavailable)
	}

	return Snapshot{
		Coin:           id,
		CurrentPrice:   *price,
		MarketCap:      *marketCap,
		PriceChange24h: *md.PriceChangePercentage24h,
		LastUpdated:    *md.LastUpdated,
	}, nil
}

// Description returns the start of the English project description,
// cut to the configured number of runes and followed by "...".
func (c *Client) Description(ctx context.Context, id coins.ID) (string, error) {
	var payload coinPayload
	if err := c.fetch(ctx, id, kindDescription, &payload); err != nil {
		return "", err
	}

	text, ok := payload.Description["en"]
	if !ok {
		return "", fmt.Errorf("%s: missing description.en: %w", id, ErrUnavailable)
	}
	return truncate(text, c.newsLength) + ellipsis, nil
}

func (c *Client) fetch(ctx context.Context, id coins.ID, kind string, out *coinPayload) (err error) {
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		metrics.ObserveUpstream(kind, err, duration)
		logger.LogPerformanceEntry(c.log, "market", kind, duration, logger.Fields{"coin": id.String()})
		if err != nil {
			c.log.WithError(err).WithFields(logger.Fields{"coin": id.String(), "kind": kind}).Warn("market data request failed")
		}
	}()

	reqURL, err := c.coinURL(id, kind == kindSnapshot)
	if err != nil {
		return fmt.Errorf("failed to build request url: %v: %w", err, ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v: %w", err, ErrUnavailable)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %v: %w", kind, err, ErrUnavailable)
	}
	return nil
}

func (c *Client) coinURL(id coins.ID, withMarketData bool) (string, error) {
	u, err := url.Parse(c.baseURL + "/coins/" + url.PathEscape(id.String()))
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", fmt.Sprintf("%t", withMarketData))
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
