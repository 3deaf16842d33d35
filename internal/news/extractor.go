package news

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Extractor downloads an article page and pulls the readable body text.
// Pages whose text comes out shorter than minChars are treated as extraction
// failures, so stub pages never reach the summarization stage.
type Extractor struct {
	client   *http.Client
	minChars int
	maxChars int
	logger   *slog.Logger
}

func NewExtractor(minChars, maxChars int, client *http.Client, logger *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client:   client,
		minChars: minChars,
		maxChars: maxChars,
		logger:   logger.With("component", "extractor"),
	}
}

// Extract returns the full body text for the url, capped at maxChars runes.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrExtractionFailed, err)
	}
	req.Header.Set("User-Agent", "NewsMind/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: page returned %s", ErrExtractionFailed, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: parse document: %v", ErrExtractionFailed, err)
	}

	body := extractBody(doc)
	if utf8.RuneCountInString(body) < e.minChars {
		return "", fmt.Errorf("%w: text below %d chars for %s", ErrExtractionFailed, e.minChars, pageURL)
	}

	if e.maxChars > 0 {
		if runes := []rune(body); len(runes) > e.maxChars {
			body = string(runes[:e.maxChars])
		}
	}

	return body, nil
}

func extractBody(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	// Prefer paragraphs inside an article element; fall back to the whole page.
	scope := doc.Find("article p")
	if scope.Length() == 0 {
		scope = doc.Find("p")
	}

	var paragraphs []string
	scope.Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
