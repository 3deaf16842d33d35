package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultNewsAPIURL = "https://newsapi.org/v2/everything"

// Candidate is article metadata returned by the news index, before extraction.
type Candidate struct {
	Title       string
	Author      string
	Source      string
	URL         string
	PublishedAt time.Time
}

// Fetcher queries the NewsAPI article index for a topic.
type Fetcher struct {
	baseURL  string
	apiKey   string
	language string
	pageSize int
	client   *http.Client
	logger   *slog.Logger
}

// NewFetcher wires a NewsAPI client. An empty baseURL selects the public
// endpoint; pageSize defaults to 5.
func NewFetcher(baseURL, apiKey string, pageSize int, client *http.Client, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = defaultNewsAPIURL
	}
	if pageSize <= 0 {
		pageSize = 5
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL:  baseURL,
		apiKey:   apiKey,
		language: "en",
		pageSize: pageSize,
		client:   client,
		logger:   logger.With("component", "fetcher"),
	}
}

// Fetch returns candidate metadata for a topic, newest first. A zero window
// disables the recency filter. Candidates with missing title or url are
// dropped here rather than surfacing as extraction failures later.
func (f *Fetcher) Fetch(ctx context.Context, topic string, window time.Duration) ([]Candidate, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("%w: news api key not configured", ErrSourceUnavailable)
	}

	pageURL, err := f.buildQueryURL(topic, window)
	if err != nil {
		return nil, fmt.Errorf("build query url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: news index returned %s", ErrSourceUnavailable, resp.Status)
	}

	var payload struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			Author string `json:"author"`
			Title  string `json:"title"`
			URL    string `json:"url"`
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("%w: news index error: %s", ErrSourceUnavailable, payload.Message)
	}

	candidates := make([]Candidate, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.Title == "" || item.URL == "" {
			f.logger.Debug("skipping candidate with missing title or url", "topic", topic)
			continue
		}

		author := item.Author
		if author == "" {
			author = "Unknown"
		}

		publishedAt := time.Now().UTC()
		if parsed, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			publishedAt = parsed
		}

		candidates = append(candidates, Candidate{
			Title:       item.Title,
			Author:      author,
			Source:      item.Source.Name,
			URL:         item.URL,
			PublishedAt: publishedAt,
		})
	}

	return candidates, nil
}

func (f *Fetcher) buildQueryURL(topic string, window time.Duration) (string, error) {
	parsed, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", f.baseURL, err)
	}

	query := parsed.Query()
	query.Set("q", topic)
	query.Set("language", f.language)
	query.Set("sortBy", "publishedAt")
	query.Set("pageSize", strconv.Itoa(f.pageSize))
	query.Set("apiKey", f.apiKey)
	if window > 0 {
		query.Set("from", time.Now().UTC().Add(-window).Format(time.RFC3339))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
