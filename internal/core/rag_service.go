package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/newsmind/newsmind/internal/llm"
	"github.com/newsmind/newsmind/internal/store"
	"github.com/newsmind/newsmind/internal/utils"
)

// ArticleCorpus supplies the retrieval snapshot: every persisted article with
// a non-null embedding.
type ArticleCorpus interface {
	GetEmbeddedArticles() ([]store.Article, error)
}

// ScoredArticle pairs an article with its similarity to the current query.
type ScoredArticle struct {
	Article store.Article
	Score   float64
}

// RAGService retrieves the most relevant articles for a query and generates
// an answer grounded in their summaries.
type RAGService struct {
	corpus    ArticleCorpus
	embedder  llm.Embedder
	providers *llm.Registry
	topK      int
	epsilon   float64
	logger    *slog.Logger
}

func NewRAGService(corpus ArticleCorpus, embedder llm.Embedder, providers *llm.Registry, topK int, epsilon float64, logger *slog.Logger) *RAGService {
	if topK <= 0 {
		topK = 3
	}
	if epsilon <= 0 {
		epsilon = 1e-9
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		corpus:    corpus,
		embedder:  embedder,
		providers: providers,
		topK:      topK,
		epsilon:   epsilon,
		logger:    logger.With("component", "rag"),
	}
}

// EmbedQuery embeds the user question with the same model as the corpus.
func (s *RAGService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.embedder.EmbedText(ctx, query)
}

// Rank scores every embedded article against the query vector and returns the
// top-k, descending by cosine similarity. Scores tied within epsilon prefer
// the more recently published article, then the lower id. Articles whose
// stored vector does not match the query dimension are skipped. Articles with
// no positive similarity are dropped after ranking, as they are not worth
// grounding an answer on.
func (s *RAGService) Rank(queryEmbedding []float32, k int) ([]ScoredArticle, error) {
	if len(queryEmbedding) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = s.topK
	}

	articles, err := s.corpus.GetEmbeddedArticles()
	if err != nil {
		return nil, fmt.Errorf("failed to load article corpus: %w", err)
	}

	scored := make([]ScoredArticle, 0, len(articles))
	for _, article := range articles {
		if len(article.Embedding) == 0 {
			continue
		}
		score, err := utils.CosineSimilarity(queryEmbedding, article.Embedding)
		if err != nil {
			s.logger.Warn("skipping article with mismatched embedding", "article_id", article.ID, "err", err)
			continue
		}
		scored = append(scored, ScoredArticle{Article: article, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return s.less(scored[i], scored[j]) })
	if len(scored) > k {
		scored = scored[:k]
	}

	filtered := scored[:0]
	for _, sa := range scored {
		if sa.Score > 0 {
			filtered = append(filtered, sa)
		}
	}
	return filtered, nil
}

func (s *RAGService) less(a, b ScoredArticle) bool {
	if math.Abs(a.Score-b.Score) > s.epsilon {
		return a.Score > b.Score
	}
	if !a.Article.PublishedAt.Equal(b.Article.PublishedAt) {
		return a.Article.PublishedAt.After(b.Article.PublishedAt)
	}
	return a.Article.ID < b.Article.ID
}

// BuildContext assembles the grounding context from retrieved summaries, in
// retrieval order, one numbered block per article.
func (s *RAGService) BuildContext(retrieved []ScoredArticle) string {
	if len(retrieved) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(retrieved))
	for i, sa := range retrieved {
		art := sa.Article
		blocks = append(blocks, fmt.Sprintf(
			"[%d] Title: %s\nSource: %s | Category: %s | Published: %s\nSummary:\n%s",
			i+1, art.Title, art.Source, art.Category, art.PublishedAt.Format("2006-01-02"), art.Summary))
	}
	return strings.Join(blocks, "\n\n")
}

// Answer produces a grounded reply via the chosen backend. Backend failures
// degrade to the fixed fallback sentinel so a chat turn is never dropped.
func (s *RAGService) Answer(ctx context.Context, backend llm.Backend, question string, retrieved []ScoredArticle) string {
	provider, err := s.providers.Provider(backend)
	if err != nil {
		s.logger.Error("no provider registered for backend", "backend", backend, "err", err)
		return llm.AnswerFallback
	}

	answer, err := provider.Answer(ctx, question, s.BuildContext(retrieved))
	if err != nil {
		s.logger.Warn("answer generation failed, using fallback", "backend", backend, "err", err)
		return llm.AnswerFallback
	}
	return answer
}
