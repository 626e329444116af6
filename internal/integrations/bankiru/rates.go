package bankiru

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"exchange-agent/internal/domain"
)

const (
	buyCellSelector  = "table.currency-table__table tbody tr td:nth-child(3)"
	sellCellSelector = "table.currency-table__table tbody tr td:nth-child(4)"
)

// FetchBestRates scrapes the best USD offers for a city code. The first row
// of the summary table carries the best buy and sell side.
func (c *Client) FetchBestRates(ctx context.Context, cityCode string) (domain.Offer, domain.Offer, error) {
	url := c.baseURL + "/products/currency/best_rates_summary/bank/usd/" + cityCode + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Offer{}, domain.Offer{}, fmt.Errorf("bankiru: create request: %w", err)
	}
	// The portal serves the summary fragment only to XHR callers.
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Offer{}, domain.Offer{}, fmt.Errorf("bankiru: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return domain.Offer{}, domain.Offer{}, fmt.Errorf("bankiru: unexpected status %d from %s", res.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return domain.Offer{}, domain.Offer{}, fmt.Errorf("bankiru: parse page: %w", err)
	}

	buy, err := extractOffer(doc, buyCellSelector)
	if err != nil {
		return domain.Offer{}, domain.Offer{}, fmt.Errorf("bankiru: buy side: %w", err)
	}
	sell, err := extractOffer(doc, sellCellSelector)
	if err != nil {
		return domain.Offer{}, domain.Offer{}, fmt.Errorf("bankiru: sell side: %w", err)
	}
	return buy, sell, nil
}

func extractOffer(doc *goquery.Document, cellSelector string) (domain.Offer, error) {
	cell := doc.Find(cellSelector).First()
	if cell.Length() == 0 {
		return domain.Offer{}, fmt.Errorf("no cell matches %q", cellSelector)
	}

	rawRate := normalizeNumber(cell.Find(".currency-table__rate__num").First().Text())
	rate, err := strconv.ParseFloat(rawRate, 64)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("parse rate %q: %w", rawRate, err)
	}

	return domain.Offer{
		Rate:        rate,
		Description: cleanText(cell.Find(".currency-table__rate__text").First().Text()),
		BankID:      cell.Find("a").First().AttrOr("data-bank-id", ""),
	}, nil
}
