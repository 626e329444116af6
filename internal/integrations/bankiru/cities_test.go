package bankiru

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCityDirectory_LoadAndResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bitrix/components/banks/universal.select.region/ajax.php", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"region_name":"Moskva","region_code":"4"},
			{"region_name":"Kazan","region_code":"11"},
			{"region_name":"","region_code":"99"},
			{"region_name":"Nowhere","region_code":""}
		]}`))
	}))
	defer srv.Close()

	dir := NewCityDirectory(NewClient(WithBaseURL(srv.URL)))
	require.NoError(t, dir.Load(context.Background()))
	require.Equal(t, 2, dir.Len())

	code, ok := dir.Code("moskva")
	require.True(t, ok)
	require.Equal(t, "4", code)

	// Lookups are case and whitespace insensitive.
	code, ok = dir.Code("  KaZaN ")
	require.True(t, ok)
	require.Equal(t, "11", code)

	_, ok = dir.Code("atlantis")
	require.False(t, ok)
}

func TestCityDirectory_LoadReplacesTable(t *testing.T) {
	payloads := []string{
		`{"data":[{"region_name":"Moskva","region_code":"4"}]}`,
		`{"data":[{"region_name":"Kazan","region_code":"11"}]}`,
	}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payloads[calls]))
		calls++
	}))
	defer srv.Close()

	dir := NewCityDirectory(NewClient(WithBaseURL(srv.URL)))
	require.NoError(t, dir.Load(context.Background()))
	require.NoError(t, dir.Load(context.Background()))

	_, ok := dir.Code("moskva")
	require.False(t, ok)
	_, ok = dir.Code("kazan")
	require.True(t, ok)
}

func TestCityDirectory_EmptyBeforeLoad(t *testing.T) {
	dir := NewCityDirectory(NewClient())
	require.Zero(t, dir.Len())
	_, ok := dir.Code("moskva")
	require.False(t, ok)
}

func TestCityDirectory_LoadErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		dir := NewCityDirectory(NewClient(WithBaseURL(srv.URL)))
		err := dir.Load(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "unexpected status 502")
	})

	t.Run("malformed payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>not json</html>`))
		}))
		defer srv.Close()

		dir := NewCityDirectory(NewClient(WithBaseURL(srv.URL)))
		err := dir.Load(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode city list")
	})
}
