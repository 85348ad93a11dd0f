package sidra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodata-br/censomap/internal/fetcher"
)

func testClient(baseURL string) *Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
	return NewClient(f, Options{
		BaseURL:  baseURL,
		Table:    9605,
		Variable: 93,
		Period:   "2022",
	})
}

func TestValuesURL(t *testing.T) {
	c := testClient("https://apisidra.ibge.gov.br")
	assert.Equal(t,
		"https://apisidra.ibge.gov.br/values/t/9605/n6/all/v/93/p/2022/c86/all",
		c.ValuesURL(),
	)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/values/t/9605/n6/all/v/93/p/2022/c86/all", r.URL.Path)
		w.Write([]byte(valuesFixture))
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, obs, 5)
}

func TestFetch_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
}

func TestFetchIfChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(valuesFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	obs, etag, changed, err := c.FetchIfChanged(context.Background(), "")
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, `"v1"`, etag)
	assert.Len(t, obs, 5)

	obs, etag, changed, err = c.FetchIfChanged(context.Background(), `"v1"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, `"v1"`, etag)
	assert.Nil(t, obs)
}
