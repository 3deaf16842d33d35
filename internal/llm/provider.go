package llm

import (
	"context"
	"fmt"
	"strings"
)

// Backend identifies one of the interchangeable generative-language providers.
// It is always supplied explicitly by the caller, never read from ambient state.
type Backend string

const (
	BackendOpenAI Backend = "openai"
	BackendGemini Backend = "gemini"
)

const (
	// SummaryFallback is recorded when the summarization backend fails.
	// Ingestion of the article still proceeds with this sentinel.
	SummaryFallback = "Summary unavailable."

	// AnswerFallback is returned to the user when the answering backend fails.
	AnswerFallback = "Sorry, I couldn't generate an answer right now. Please try again later."
)

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ParseBackend resolves a caller-supplied provider identifier. An empty value
// defaults to OpenAI, matching the original assistant's behavior.
func ParseBackend(raw string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(raw))) {
	case BackendOpenAI, "":
		return BackendOpenAI, nil
	case BackendGemini:
		return BackendGemini, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, raw)
	}
}

// NormalizeSentiment maps free-form model output onto the fixed label set.
// Anything unrecognized becomes neutral.
func NormalizeSentiment(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, "\"'. \n\r\t")
	switch {
	case strings.HasPrefix(label, SentimentPositive):
		return SentimentPositive
	case strings.HasPrefix(label, SentimentNegative):
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Provider is one generative-language backend with the full capability set
// used by the pipeline: summarization, sentiment analysis, and grounded
// answering. Implementations must be safe for concurrent use.
type Provider interface {
	// Summarize condenses article text into maxBullets bullet points.
	Summarize(ctx context.Context, title, text string, maxBullets int) (string, error)

	// AnalyzeSentiment classifies text as positive, neutral, or negative.
	AnalyzeSentiment(ctx context.Context, text string) (string, error)

	// Answer responds to a question using only the supplied grounding context.
	Answer(ctx context.Context, question, contextText string) (string, error)
}

// Embedder generates fixed-length vector embeddings from text. For a given
// model version the same input always yields the same vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Registry resolves providers from explicit backend identifiers.
type Registry struct {
	providers map[Backend]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Backend]Provider)}
}

func (r *Registry) Register(backend Backend, provider Provider) {
	r.providers[backend] = provider
}

func (r *Registry) Provider(backend Backend) (Provider, error) {
	provider, ok := r.providers[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
	return provider, nil
}
