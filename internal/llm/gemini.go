package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	geminiChatModel      = "gemini-1.5-flash-latest"
	geminiEmbeddingModel = "text-embedding-004"
)

// GeminiProvider implements Provider and Embedder on top of the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	logger *slog.Logger
}

var (
	_ Provider = (*GeminiProvider)(nil)
	_ Embedder = (*GeminiProvider)(nil)
)

func NewGeminiProvider(ctx context.Context, apiKey string, logger *slog.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiProvider{
		client: client,
		logger: logger.With("provider", BackendGemini),
	}, nil
}

func (p *GeminiProvider) Close() {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			p.logger.Error("error closing GenAI client", "err", err)
		}
	}
}

func (p *GeminiProvider) Summarize(ctx context.Context, title, text string, maxBullets int) (string, error) {
	return p.generate(ctx, "", summaryPrompt(title, text, maxBullets))
}

func (p *GeminiProvider) AnalyzeSentiment(ctx context.Context, text string) (string, error) {
	label, err := p.generate(ctx, "", sentimentPrompt(text))
	if err != nil {
		return "", err
	}
	return NormalizeSentiment(label), nil
}

func (p *GeminiProvider) Answer(ctx context.Context, question, contextText string) (string, error) {
	return p.generate(ctx, answerSystemInstruction, answerPrompt(question, contextText))
}

func (p *GeminiProvider) generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	model := p.client.GenerativeModel(geminiChatModel)
	if systemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemInstruction)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %v", ErrBackendUnavailable, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrBackendUnavailable)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			p.logger.Warn("gemini response part was not text", "type", fmt.Sprintf("%T", part))
		}
	}

	result := strings.TrimSpace(responseText.String())
	if result == "" {
		return "", fmt.Errorf("%w: gemini returned an empty response", ErrBackendUnavailable)
	}
	return result, nil
}

// EmbedText returns the embedding vector for the given text. The embedding
// model version is fixed, so the output dimensionality is stable across the
// whole corpus.
func (p *GeminiProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	em := p.client.EmbeddingModel(geminiEmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embedding request failed: %v", ErrEmbeddingUnavailable, err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: no embedding data received from gemini", ErrEmbeddingUnavailable)
	}
	return res.Embedding.Values, nil
}
