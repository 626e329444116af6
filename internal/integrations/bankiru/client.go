// Package bankiru talks to the banki.ru portal: the best-rates summary page,
// the city directory and the bank branch geo API.
package bankiru

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client holds the shared portal address and HTTP client.
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
		baseURL:    "https://www.banki.ru",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalizeNumber replaces the portal's comma decimal separator with a dot.
func normalizeNumber(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
}

// cleanText collapses tabs and newlines left over from markup extraction.
func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

// parseCoordinate reads a geo coordinate sent as a string; malformed values
// read as zero rather than failing the whole record.
func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(normalizeNumber(s), 64)
	if err != nil {
		return 0
	}
	return v
}
