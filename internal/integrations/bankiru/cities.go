package bankiru

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const cityListPath = "/bitrix/components/banks/universal.select.region/ajax.php" +
	"?bankid=&baseUrl=%2Fproducts%2Fcurrency%2F&appendUrl=" +
	"&urlPattern=%2Fproducts%2Fcurrency%2Fcash%2Fusd%2F%25region_name%25%2F&type=city"

type cityListResponse struct {
	Data []struct {
		RegionName string `json:"region_name"`
		RegionCode string `json:"region_code"`
	} `json:"data"`
}

// CityDirectory is the in-memory city name to region code table, loaded once
// from the portal at startup.
type CityDirectory struct {
	client *Client

	mu    sync.RWMutex
	codes map[string]string
}

func NewCityDirectory(client *Client) *CityDirectory {
	return &CityDirectory{client: client, codes: map[string]string{}}
}

// Load fetches the region list and replaces the lookup table. Names are
// keyed lowercased.
func (d *CityDirectory) Load(ctx context.Context) error {
	url := d.client.baseURL + cityListPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("bankiru: create city list request: %w", err)
	}

	res, err := d.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bankiru: city list request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("bankiru: unexpected status %d loading city list", res.StatusCode)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("bankiru: read city list: %w", err)
	}

	var payload cityListResponse
	if err := json.Unmarshal(buf, &payload); err != nil {
		return fmt.Errorf("bankiru: decode city list: %w", err)
	}

	codes := make(map[string]string, len(payload.Data))
	for _, c := range payload.Data {
		name := strings.ToLower(strings.TrimSpace(c.RegionName))
		if name == "" || c.RegionCode == "" {
			continue
		}
		codes[name] = c.RegionCode
	}

	d.mu.Lock()
	d.codes = codes
	d.mu.Unlock()
	return nil
}

// Code resolves a lowercased city name to its region code.
func (d *CityDirectory) Code(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, ok := d.codes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// Len reports how many cities are loaded.
func (d *CityDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.codes)
}
