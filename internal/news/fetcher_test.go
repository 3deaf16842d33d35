package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "publishedAt", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))

		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"title": "Go 1.25 released", "url": "https://example.com/go", "author": "Gopher", "source": {"name": "Go Blog"}, "publishedAt": "2025-06-01T10:00:00Z"},
				{"title": "", "url": "https://example.com/untitled"},
				{"title": "No url here", "url": ""},
				{"title": "Anonymous piece", "url": "https://example.com/anon", "source": {"name": "Wire"}, "publishedAt": "not-a-date"}
			]
		}`))
	}))
	defer srv.Close()

	fetcher := NewFetcher(srv.URL, "test-key", 0, srv.Client(), nil)
	candidates, err := fetcher.Fetch(context.Background(), "golang", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Go 1.25 released", candidates[0].Title)
	assert.Equal(t, "Gopher", candidates[0].Author)
	assert.Equal(t, "Go Blog", candidates[0].Source)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), candidates[0].PublishedAt)

	// Missing author defaults, unparsable timestamp falls back to fetch time.
	assert.Equal(t, "Unknown", candidates[1].Author)
	assert.WithinDuration(t, time.Now().UTC(), candidates[1].PublishedAt, time.Minute)
}

func TestFetcher_Fetch_SourceUnavailable(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		fetcher := NewFetcher("", "", 5, nil, nil)
		_, err := fetcher.Fetch(context.Background(), "golang", 0)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		fetcher := NewFetcher(srv.URL, "test-key", 5, srv.Client(), nil)
		_, err := fetcher.Fetch(context.Background(), "golang", 0)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})

	t.Run("api error payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status": "error", "message": "apiKeyInvalid"}`))
		}))
		defer srv.Close()

		fetcher := NewFetcher(srv.URL, "test-key", 5, srv.Client(), nil)
		_, err := fetcher.Fetch(context.Background(), "golang", 0)
		require.ErrorIs(t, err, ErrSourceUnavailable)
		assert.Contains(t, err.Error(), "apiKeyInvalid")
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // connection refused from here on

		fetcher := NewFetcher(srv.URL, "test-key", 5, nil, nil)
		_, err := fetcher.Fetch(context.Background(), "golang", 0)
		assert.ErrorIs(t, err, ErrSourceUnavailable)
	})
}

func TestFetcher_Fetch_NoRecencyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("from"))
		w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	defer srv.Close()

	fetcher := NewFetcher(srv.URL, "test-key", 5, srv.Client(), nil)
	candidates, err := fetcher.Fetch(context.Background(), "golang", 0)
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.False(t, errors.Is(err, ErrSourceUnavailable))
}
