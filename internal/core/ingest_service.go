package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/newsmind/newsmind/internal/llm"
	"github.com/newsmind/newsmind/internal/news"
	"github.com/newsmind/newsmind/internal/store"
)

const summaryBullets = 3

// CandidateFetcher returns candidate article metadata for a topic.
type CandidateFetcher interface {
	Fetch(ctx context.Context, topic string, window time.Duration) ([]news.Candidate, error)
}

// BodyExtractor returns the full body text behind a candidate url.
type BodyExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// ArticleStore is the slice of the persistence layer the ingestion pipeline
// writes to. Inserts are append-only.
type ArticleStore interface {
	HasArticleURL(url string) (bool, error)
	InsertArticle(article *store.Article) error
}

// TopicReport counts pipeline outcomes for one topic in one run.
type TopicReport struct {
	Topic     string `json:"topic"`
	Fetched   int    `json:"fetched"`
	Extracted int    `json:"extracted"`
	Persisted int    `json:"persisted"`
}

// IngestDeps wires the collaborators of the ingestion pipeline.
type IngestDeps struct {
	Store     ArticleStore
	Fetcher   CandidateFetcher
	Extractor BodyExtractor
	Providers *llm.Registry
	Embedder  llm.Embedder
	PoolSize  int           // candidate worker cap; defaults to 4
	Window    time.Duration // recency filter for fetches; zero disables it
	Logger    *slog.Logger
}

// IngestService sequences fetch, extract, enrich, and persist per topic.
// Candidates within a topic run on a bounded worker pool; each candidate's
// failure is isolated from the rest of the batch.
type IngestService struct {
	store     ArticleStore
	fetcher   CandidateFetcher
	extractor BodyExtractor
	providers *llm.Registry
	embedder  llm.Embedder
	pool      *ants.Pool
	window    time.Duration
	logger    *slog.Logger
}

func NewIngestService(deps IngestDeps) (*IngestService, error) {
	if deps.Store == nil || deps.Fetcher == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("store, fetcher, and extractor are required")
	}
	if deps.Providers == nil || deps.Embedder == nil {
		return nil, fmt.Errorf("providers and embedder are required")
	}

	poolSize := deps.PoolSize
	if poolSize < 1 {
		poolSize = 4
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestService{
		store:     deps.Store,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		providers: deps.Providers,
		embedder:  deps.Embedder,
		pool:      pool,
		window:    deps.Window,
		logger:    logger.With("component", "ingest"),
	}, nil
}

// Release frees the worker pool. The service must not be used afterwards.
func (s *IngestService) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Run ingests every topic in order using the explicitly chosen backend for
// summarization and sentiment. A topic whose fetch fails reports zero
// candidates; cancellation of ctx stops remaining topics without touching
// already-persisted articles.
func (s *IngestService) Run(ctx context.Context, topics []string, backend llm.Backend) ([]TopicReport, error) {
	provider, err := s.providers.Provider(backend)
	if err != nil {
		return nil, err
	}

	reports := make([]TopicReport, 0, len(topics))
	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("run cancelled, skipping remaining topics", "next_topic", topic, "err", err)
			break
		}
		reports = append(reports, s.ingestTopic(ctx, topic, provider))
	}
	return reports, nil
}

func (s *IngestService) ingestTopic(ctx context.Context, topic string, provider llm.Provider) TopicReport {
	report := TopicReport{Topic: topic}

	candidates, err := s.fetcher.Fetch(ctx, topic, s.window)
	if err != nil {
		// Zero candidates for this topic; other topics continue.
		s.logger.Warn("fetch failed for topic", "topic", topic, "err", err)
		return report
	}
	report.Fetched = len(candidates)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, candidate := range candidates {
		candidate := candidate
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			extracted, persisted := s.processCandidate(ctx, topic, candidate, provider)
			mu.Lock()
			if extracted {
				report.Extracted++
			}
			if persisted {
				report.Persisted++
			}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Error("failed to submit candidate to pool", "url", candidate.URL, "err", submitErr)
		}
	}
	wg.Wait()

	s.logger.Info("topic ingested", "topic", topic,
		"fetched", report.Fetched, "extracted", report.Extracted, "persisted", report.Persisted)
	return report
}

func (s *IngestService) processCandidate(ctx context.Context, topic string, candidate news.Candidate, provider llm.Provider) (extracted, persisted bool) {
	if exists, err := s.store.HasArticleURL(candidate.URL); err == nil && exists {
		s.logger.Debug("skipping already ingested url", "url", candidate.URL)
		return false, false
	}

	body, err := s.extractor.Extract(ctx, candidate.URL)
	if err != nil {
		s.logger.Warn("dropping candidate", "url", candidate.URL, "err", err)
		return false, false
	}

	article := &store.Article{
		Title:       candidate.Title,
		Author:      candidate.Author,
		Source:      candidate.Source,
		URL:         candidate.URL,
		Category:    topic,
		PublishedAt: candidate.PublishedAt,
		FetchedAt:   time.Now().UTC(),
	}

	s.enrich(ctx, article, body, provider)

	if err := s.store.InsertArticle(article); err != nil {
		s.logger.Error("failed to persist article", "url", candidate.URL, "err", err)
		return true, false
	}
	return true, true
}

// enrich fills in summary, sentiment, and embedding. Summary and sentiment
// run as independent tasks joined before persistence; the embedding stage
// follows because it prefers the summary as input. Any stage's failure leaves
// the other fields intact.
func (s *IngestService) enrich(ctx context.Context, article *store.Article, body string, provider llm.Provider) {
	var (
		wg                       sync.WaitGroup
		summary, sentiment       string
		summaryErr, sentimentErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		summary, summaryErr = provider.Summarize(ctx, article.Title, body, summaryBullets)
	}()
	go func() {
		defer wg.Done()
		sentiment, sentimentErr = provider.AnalyzeSentiment(ctx, body)
	}()
	wg.Wait()

	if summaryErr != nil {
		s.logger.Warn("summarization failed, recording fallback", "url", article.URL, "err", summaryErr)
		summary = llm.SummaryFallback
	}
	if sentimentErr != nil {
		s.logger.Warn("sentiment analysis failed, defaulting to neutral", "url", article.URL, "err", sentimentErr)
		sentiment = llm.SentimentNeutral
	}
	article.Summary = summary
	article.Sentiment = sentiment

	embedding, err := s.embedder.EmbedText(ctx, embeddingInput(article.Title, summary, body))
	if err != nil {
		s.logger.Warn("embedding failed, persisting without vector", "url", article.URL, "err", err)
		embedding = nil
	}
	article.Embedding = embedding
}

// embeddingInput combines title and summary for semantic alignment with
// retrieval-time queries, falling back to a body excerpt when the summary
// stage produced only the sentinel.
func embeddingInput(title, summary, body string) string {
	if summary == "" || summary == llm.SummaryFallback {
		excerpt := body
		if runes := []rune(excerpt); len(runes) > 1000 {
			excerpt = string(runes[:1000])
		}
		return strings.TrimSpace(title + "\n\n" + excerpt)
	}
	return strings.TrimSpace(title) + "\n\n" + strings.TrimSpace(summary)
}
