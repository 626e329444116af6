// Package moex fetches the last USD trade price from the exchange ISS API.
package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const quotePath = "/iss/engines/currency/markets/selt/securities/USD000UTSTOM.json" +
	"?iss.meta=off&iss.only=marketdata&marketdata.columns=LAST"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://iss.moex.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quoteResponse struct {
	MarketData struct {
		Columns []string     `json:"columns"`
		Data    [][]*float64 `json:"data"`
	} `json:"marketdata"`
}

// FetchMarketQuote returns the last trade price, or nil when the market has
// no last price (outside trading hours the field is null).
func (c *Client) FetchMarketQuote(ctx context.Context) (*float64, error) {
	url := c.baseURL + quotePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("moex: create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moex: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("moex: unexpected status %d from %s", res.StatusCode, url)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("moex: read response: %w", err)
	}

	var payload quoteResponse
	if err := json.Unmarshal(buf, &payload); err != nil {
		return nil, fmt.Errorf("moex: decode response: %w", err)
	}

	lastIdx := -1
	for i, col := range payload.MarketData.Columns {
		if col == "LAST" {
			lastIdx = i
			break
		}
	}
	if lastIdx < 0 {
		return nil, fmt.Errorf("moex: LAST column not present in response")
	}

	for _, row := range payload.MarketData.Data {
		if lastIdx < len(row) && row[lastIdx] != nil {
			return row[lastIdx], nil
		}
	}
	return nil, nil
}
