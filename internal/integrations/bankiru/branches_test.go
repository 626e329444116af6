package bankiru

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindBranches_RequestShapeAndOrder(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":{"data":[
			{"id":"201","name":"Office  One","address":"Main st, 1"},
			{"id":"105","name":"Office Two","address":"Side st, 2"}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	branches, err := c.FindBranches(context.Background(), "4", "alpha")
	require.NoError(t, err)

	require.Equal(t, "2.0", got.JSONRPC)
	require.Equal(t, "bankGeo/getObjectsByFilter", got.Method)
	params, ok := got.Params.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "4", params["region_id"])
	require.Equal(t, "alpha", params["bank_id"])
	require.Equal(t, "office", params["type"])

	// Portal order is preserved, ids are not re-sorted.
	require.Len(t, branches, 2)
	require.Equal(t, "201", branches[0].ID)
	require.Equal(t, "Office One", branches[0].Name)
	require.Equal(t, "105", branches[1].ID)
}

func TestEnrich_ParsesCoordinatesAndPhone(t *testing.T) {
	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":{"data":[
			{"id":"201","name":"Office One","address":"Main st, 1",
			 "latitude":"55,7558","longitude":"37.6173","phone":"+7 495 000-00-00"},
			{"id":"105","name":"Office Two","address":"Side st, 2",
			 "latitude":"broken","longitude":""}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	branches, err := c.Enrich(context.Background(), []string{"201", "105"})
	require.NoError(t, err)

	require.Equal(t, "bankGeo/getObjectsData", got.Method)
	params, ok := got.Params.(map[string]any)
	require.True(t, ok)
	require.Equal(t, []any{"201", "105"}, params["object_ids"])

	require.Len(t, branches, 2)
	require.Equal(t, 55.7558, branches[0].Latitude)
	require.Equal(t, 37.6173, branches[0].Longitude)
	require.Equal(t, "+7 495 000-00-00", branches[0].Phone)

	// Malformed coordinates read as zero instead of failing the record.
	require.Zero(t, branches[1].Latitude)
	require.Zero(t, branches[1].Longitude)
}

func TestEnrich_NoIDsSkipsCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("unexpected request")
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	branches, err := c.Enrich(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, branches)
}

func TestFindBranches_RPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":-32600,"message":"invalid request"}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FindBranches(context.Background(), "4", "alpha")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rejected: -32600 invalid request")
}

func TestFindBranches_MissingResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FindBranches(context.Background(), "4", "alpha")
	require.Error(t, err)
	require.Contains(t, err.Error(), "returned no result")
}

func TestFindBranches_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FindBranches(context.Background(), "4", "alpha")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 503")
}
