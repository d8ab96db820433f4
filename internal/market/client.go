package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finman/internal/cache"
	"finman/internal/core"
	"finman/internal/log"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// quoteCacheTTL keeps quote lookups off the wire between refresh passes.
const quoteCacheTTL = 5 * time.Minute

// ErrNoQuote means the exchange returned no usable price for the symbol.
var ErrNoQuote = errors.New("no quote for symbol")

// Quote is one market price observation.
type Quote struct {
	Symbol   string
	Price    core.Money
	Currency string
	AsOf     time.Time
}

// Client fetches quotes from the Yahoo Finance chart API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	suffix     string
	cache      *cache.LRUCache[Quote]
	logger     *log.Logger
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithSuffix sets the exchange suffix appended to bare symbols.
func WithSuffix(s string) Option {
	return func(c *Client) { c.suffix = s }
}

// NewClient creates a market data client. suffix-less symbols get the
// configured exchange suffix (".NS" for NSE) appended before lookup.
func NewClient(timeout time.Duration, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		suffix:     ".NS",
		cache:      cache.NewLRUCache[Quote](256, quoteCacheTTL),
		logger:     logger.WithComponent(log.ComponentMarket),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache exposes the quote cache for cleanup registration.
func (c *Client) Cache() cache.Cleaner {
	return c.cache
}

// chartResponse is the subset of the chart API payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetQuote returns the latest price for a symbol, from cache when fresh.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	full := c.fullSymbol(symbol)

	if q, ok := c.cache.Get(full); ok {
		return q, nil
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, full)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "finman/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fetch quote for %s: %w", full, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoQuote, full)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote for %s: unexpected status %d", full, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("decode quote for %s: %w", full, err)
	}

	if payload.Chart.Error != nil {
		return Quote{}, fmt.Errorf("%w: %s (%s)", ErrNoQuote, full, payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoQuote, full)
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoQuote, full)
	}

	q := Quote{
		Symbol:   full,
		Price:    core.FromRupees(meta.RegularMarketPrice),
		Currency: meta.Currency,
		AsOf:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}
	if meta.RegularMarketTime == 0 {
		q.AsOf = time.Now().UTC()
	}

	c.cache.Set(full, q)
	c.logger.DebugContext(ctx, "Quote fetched",
		log.FieldSymbol, full,
		"price_paise", q.Price.Cents)
	return q, nil
}

// fullSymbol appends the exchange suffix to symbols that carry none.
func (c *Client) fullSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if c.suffix == "" || strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + c.suffix
}
