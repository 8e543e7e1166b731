package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/config"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/plugins/manifest"
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
)

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(
		config.StoreConfig{URL: url, Timeout: 2 * time.Second, RetryMax: 0},
		manifest.NewValidator("1.2.0", "2.4.1"),
		logging.NewNop(),
	)
}

func TestBrowse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plugins", r.URL.Path)
		assert.Equal(t, "timeline", r.URL.Query().Get("category"))
		assert.Equal(t, "true", r.URL.Query().Get("featured"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"lst1","name":"Timeline View","version":"1.4.0","rating":4.5,"featured":true},
			{"id":"lst2","name":"Era Tracker","version":"0.9.1","rating":3.8,"featured":true}
		]`))
	}))
	defer srv.Close()

	listings, err := newClient(t, srv.URL).Browse(context.Background(), "timeline", true)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "Timeline View", listings[0].Name)
	assert.InDelta(t, 4.5, listings[0].Rating, 0.001)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plugins/search", r.URL.Path)
		assert.Equal(t, "map", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"lst3","name":"Region Mapper","version":"2.0.0"}]`))
	}))
	defer srv.Close()

	listings, err := newClient(t, srv.URL).Search(context.Background(), "map")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Region Mapper", listings[0].Name)
}

func TestDownloadValidBundle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plugins/lst1/download", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"manifest": {"id":"com.example.timeline","name":"Timeline View","version":"1.4.0","api_version":"1.2.0"},
			"code": "function activate(api) {} function deactivate() {}"
		}`))
	}))
	defer srv.Close()

	bundle, err := newClient(t, srv.URL).Download(context.Background(), "lst1")
	require.NoError(t, err)
	assert.Equal(t, "com.example.timeline", bundle.Manifest.ID)
	assert.Contains(t, bundle.Code, "activate")
}

func TestDownloadRevalidatesManifest(t *testing.T) {
	// Catalog serves a bundle whose manifest demands an incompatible API
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"manifest": {"id":"com.example.old","name":"Old","version":"1.0.0","api_version":"9.0.0"},
			"code": "function activate(api) {} function deactivate() {}"
		}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Download(context.Background(), "lst9")
	require.Error(t, err)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err),
		"a bad manifest from a reachable catalog is a validation failure")
}

func TestServerErrorIsCatalogUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Browse(context.Background(), "", false)
	require.Error(t, err)
	assert.Equal(t, errs.KindCatalogUnavailable, errs.KindOf(err))
	assert.True(t, errs.Retryable(err))
}

func TestUnreachableCatalog(t *testing.T) {
	// A server that is already closed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newClient(t, srv.URL).Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Equal(t, errs.KindCatalogUnavailable, errs.KindOf(err))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Browse(context.Background(), "", false)
		require.Error(t, err)
	}
	seen := hits

	// Breaker is open now; further calls never reach the server
	_, err := c.Browse(context.Background(), "", false)
	require.Error(t, err)
	assert.Equal(t, errs.KindCatalogUnavailable, errs.KindOf(err))
	assert.Equal(t, seen, hits)
}
