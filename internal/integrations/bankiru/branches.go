package bankiru

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"exchange-agent/internal/domain"
)

const geoAPIPath = "/api/"

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      string `json:"id"`
}

type rpcResponse struct {
	Result *rpcResult `json:"result,omitempty"`
	Error  *rpcError  `json:"error,omitempty"`
}

type rpcResult struct {
	Data []branchRecord `json:"data"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type branchRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Phone     string `json:"phone"`
}

type findBranchesParams struct {
	RegionID string `json:"region_id"`
	BankID   string `json:"bank_id"`
	Type     string `json:"type"`
}

type enrichParams struct {
	ObjectIDs []string `json:"object_ids"`
}

// FindBranches lists the bank's offices in a region, in portal order.
func (c *Client) FindBranches(ctx context.Context, regionID, bankID string) ([]domain.Branch, error) {
	return c.geoCall(ctx, "bankGeo/getObjectsByFilter", findBranchesParams{
		RegionID: regionID,
		BankID:   bankID,
		Type:     "office",
	})
}

// Enrich fetches full records (address, coordinates, phone) for object ids.
func (c *Client) Enrich(ctx context.Context, ids []string) ([]domain.Branch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.geoCall(ctx, "bankGeo/getObjectsData", enrichParams{ObjectIDs: ids})
}

func (c *Client) geoCall(ctx context.Context, method string, params any) ([]domain.Branch, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      "1",
	})
	if err != nil {
		return nil, fmt.Errorf("bankiru: marshal %s request: %w", method, err)
	}

	url := c.baseURL + geoAPIPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bankiru: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bankiru: %s request failed: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bankiru: unexpected status %d from %s", res.StatusCode, url)
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("bankiru: read %s response: %w", method, err)
	}

	var payload rpcResponse
	if err := json.Unmarshal(buf, &payload); err != nil {
		return nil, fmt.Errorf("bankiru: decode %s response: %w", method, err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("bankiru: %s rejected: %d %s", method, payload.Error.Code, payload.Error.Message)
	}
	if payload.Result == nil {
		return nil, fmt.Errorf("bankiru: %s returned no result", method)
	}

	branches := make([]domain.Branch, 0, len(payload.Result.Data))
	for _, r := range payload.Result.Data {
		branches = append(branches, domain.Branch{
			ID:        r.ID,
			Name:      cleanText(r.Name),
			Address:   cleanText(r.Address),
			Latitude:  parseCoordinate(r.Latitude),
			Longitude: parseCoordinate(r.Longitude),
			Phone:     cleanText(r.Phone),
		})
	}
	return branches, nil
}
