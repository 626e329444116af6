// Package cbr fetches the official reference rate from the central bank
// daily XML feed.
package cbr

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// usdValuteID is the feed id of the USD entry.
const usdValuteID = "R01235"

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
		baseURL:    "https://www.cbr.ru",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type valCurs struct {
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	ID    string `xml:"ID,attr"`
	Value string `xml:"Value"`
}

// FetchReference returns the current official USD rate.
func (c *Client) FetchReference(ctx context.Context) (float64, error) {
	url := c.baseURL + "/scripts/XML_daily.asp"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("cbr: create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cbr: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("cbr: unexpected status %d from %s", res.StatusCode, url)
	}

	dec := xml.NewDecoder(io.LimitReader(res.Body, 1<<20))
	// The feed declares windows-1251; every field we read is ASCII, so the
	// bytes can pass through unconverted.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var payload valCurs
	if err := dec.Decode(&payload); err != nil {
		return 0, fmt.Errorf("cbr: decode daily feed: %w", err)
	}

	for _, v := range payload.Valutes {
		if v.ID != usdValuteID {
			continue
		}
		rate, err := strconv.ParseFloat(normalizeNumber(v.Value), 64)
		if err != nil {
			return 0, fmt.Errorf("cbr: parse rate %q: %w", v.Value, err)
		}
		return rate, nil
	}
	return 0, fmt.Errorf("cbr: valute %s not present in daily feed", usdValuteID)
}

// normalizeNumber replaces the feed's comma decimal separator with a dot.
func normalizeNumber(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
}
