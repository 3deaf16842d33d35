package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NewsMind/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`<html><body>
			<script>var tracking = true;</script>
			<nav><p>Menu item</p></nav>
			<article>
				<p>` + long + `</p>
				<p>Second paragraph with more detail.</p>
			</article>
		</body></html>`))
	}))
	defer srv.Close()

	extractor := NewExtractor(200, 5000, srv.Client(), nil)
	body, err := extractor.Extract(context.Background(), srv.URL)
	require.NoError(t, err)

	// Paragraphs inside the article element win over the rest of the page.
	assert.NotContains(t, body, "Menu item")
	assert.NotContains(t, body, "tracking")
	assert.Contains(t, body, "Second paragraph with more detail.")
	assert.Contains(t, body, "\n\n")
}

func TestExtractor_Extract_FallsBackToAllParagraphs(t *testing.T) {
	long := strings.Repeat("Paragraphs outside any article element still count. ", 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div><p>` + long + `</p></div></body></html>`))
	}))
	defer srv.Close()

	extractor := NewExtractor(200, 5000, srv.Client(), nil)
	body, err := extractor.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "still count")
}

func TestExtractor_Extract_TooShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Stub page.</p></body></html>`))
	}))
	defer srv.Close()

	extractor := NewExtractor(200, 5000, srv.Client(), nil)
	_, err := extractor.Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractor_Extract_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	extractor := NewExtractor(200, 5000, srv.Client(), nil)
	_, err := extractor.Extract(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractor_Extract_CapsLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>` + strings.Repeat("x", 10000) + `</p></body></html>`))
	}))
	defer srv.Close()

	extractor := NewExtractor(200, 5000, srv.Client(), nil)
	body, err := extractor.Extract(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, []rune(body), 5000)
}
