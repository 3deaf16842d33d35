package core

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsmind/newsmind/internal/llm"
	"github.com/newsmind/newsmind/internal/store"
)

type staticCorpus struct {
	articles []store.Article
	err      error
}

func (c *staticCorpus) GetEmbeddedArticles() ([]store.Article, error) {
	return c.articles, c.err
}

// vectorWithSimilarity builds a unit vector whose cosine similarity against
// the query [1, 0] is exactly sim.
func vectorWithSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func testArticle(id int64, sim float64, publishedAt time.Time) store.Article {
	return store.Article{
		ID:          id,
		Title:       fmt.Sprintf("Article %d", id),
		Source:      "Wire",
		Category:    "technology",
		PublishedAt: publishedAt,
		Summary:     fmt.Sprintf("- summary %d", id),
		Embedding:   vectorWithSimilarity(sim),
	}
}

func TestRAGService_Rank(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	query := []float32{1, 0}

	t.Run("orders by similarity and truncates to k", func(t *testing.T) {
		corpus := &staticCorpus{articles: []store.Article{
			testArticle(1, 0.5, now),
			testArticle(2, 0.9, now),
			testArticle(3, 0.2, now),
		}}
		svc := NewRAGService(corpus, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

		ranked, err := svc.Rank(query, 2)
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, int64(2), ranked[0].Article.ID)
		assert.Equal(t, int64(1), ranked[1].Article.ID)
		assert.Greater(t, ranked[0].Score, ranked[1].Score)
	})

	t.Run("ties break by recency then id", func(t *testing.T) {
		older := testArticle(1, 0.8, now.Add(-time.Hour))
		newer := testArticle(2, 0.8, now)
		twinA := testArticle(3, 0.8, now.Add(-2*time.Hour))
		twinB := testArticle(4, 0.8, now.Add(-2*time.Hour))

		corpus := &staticCorpus{articles: []store.Article{twinB, older, newer, twinA}}
		svc := NewRAGService(corpus, &fakeEmbedder{}, llm.NewRegistry(), 4, 0, nil)

		ranked, err := svc.Rank(query, 4)
		require.NoError(t, err)
		require.Len(t, ranked, 4)
		assert.Equal(t, int64(2), ranked[0].Article.ID) // newest
		assert.Equal(t, int64(1), ranked[1].Article.ID)
		assert.Equal(t, int64(3), ranked[2].Article.ID) // same time, lower id first
		assert.Equal(t, int64(4), ranked[3].Article.ID)
	})

	t.Run("drops non-positive scores", func(t *testing.T) {
		orthogonal := testArticle(1, 0, now)
		opposite := store.Article{ID: 2, PublishedAt: now, Embedding: []float32{-1, 0}}
		relevant := testArticle(3, 0.7, now)

		corpus := &staticCorpus{articles: []store.Article{orthogonal, opposite, relevant}}
		svc := NewRAGService(corpus, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

		ranked, err := svc.Rank(query, 3)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, int64(3), ranked[0].Article.ID)
	})

	t.Run("skips mismatched dimensions", func(t *testing.T) {
		mismatched := store.Article{ID: 1, PublishedAt: now, Embedding: []float32{0.9, 0.1, 0.3}}
		matched := testArticle(2, 0.6, now)

		corpus := &staticCorpus{articles: []store.Article{mismatched, matched}}
		svc := NewRAGService(corpus, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

		ranked, err := svc.Rank(query, 3)
		require.NoError(t, err)
		require.Len(t, ranked, 1)
		assert.Equal(t, int64(2), ranked[0].Article.ID)
	})

	t.Run("empty query embedding ranks nothing", func(t *testing.T) {
		corpus := &staticCorpus{articles: []store.Article{testArticle(1, 0.9, now)}}
		svc := NewRAGService(corpus, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

		ranked, err := svc.Rank(nil, 3)
		require.NoError(t, err)
		assert.Empty(t, ranked)
	})

	t.Run("corpus error surfaces", func(t *testing.T) {
		corpus := &staticCorpus{err: fmt.Errorf("db closed")}
		svc := NewRAGService(corpus, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

		_, err := svc.Rank(query, 3)
		assert.Error(t, err)
	})
}

func TestRAGService_BuildContext(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := NewRAGService(&staticCorpus{}, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

	t.Run("numbered blocks in retrieval order", func(t *testing.T) {
		retrieved := []ScoredArticle{
			{Article: testArticle(7, 0.9, now), Score: 0.9},
			{Article: testArticle(3, 0.5, now), Score: 0.5},
		}
		contextText := svc.BuildContext(retrieved)
		assert.Contains(t, contextText, "[1] Title: Article 7")
		assert.Contains(t, contextText, "[2] Title: Article 3")
		assert.Contains(t, contextText, "Published: 2025-06-01")
		assert.Contains(t, contextText, "- summary 7")
	})

	t.Run("empty retrieval yields empty context", func(t *testing.T) {
		assert.Empty(t, svc.BuildContext(nil))
	})
}

func TestRAGService_Answer(t *testing.T) {
	t.Run("returns provider answer", func(t *testing.T) {
		registry := newTestRegistry(&fakeProvider{answer: "a grounded answer"})
		svc := NewRAGService(&staticCorpus{}, &fakeEmbedder{}, registry, 3, 0, nil)

		answer := svc.Answer(context.Background(), llm.BackendOpenAI, "what happened?", nil)
		assert.Equal(t, "a grounded answer", answer)
	})

	t.Run("falls back on provider failure", func(t *testing.T) {
		registry := newTestRegistry(&fakeProvider{answerErr: llm.ErrBackendUnavailable})
		svc := NewRAGService(&staticCorpus{}, &fakeEmbedder{}, registry, 3, 0, nil)

		answer := svc.Answer(context.Background(), llm.BackendOpenAI, "what happened?", nil)
		assert.Equal(t, llm.AnswerFallback, answer)
	})

	t.Run("falls back on unknown backend", func(t *testing.T) {
		svc := NewRAGService(&staticCorpus{}, &fakeEmbedder{}, llm.NewRegistry(), 3, 0, nil)

		answer := svc.Answer(context.Background(), llm.BackendGemini, "what happened?", nil)
		assert.Equal(t, llm.AnswerFallback, answer)
	})
}
