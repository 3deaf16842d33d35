package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const openAIChatModel = openai.ChatModelGPT4oMini

// OpenAIProvider implements Provider on top of the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
	model  openai.ChatModel
	logger *slog.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(apiKey string, logger *slog.Logger) *OpenAIProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openAIChatModel,
		logger: logger.With("provider", BackendOpenAI),
	}
}

func (p *OpenAIProvider) Summarize(ctx context.Context, title, text string, maxBullets int) (string, error) {
	return p.complete(ctx, "", summaryPrompt(title, text, maxBullets))
}

func (p *OpenAIProvider) AnalyzeSentiment(ctx context.Context, text string) (string, error) {
	label, err := p.complete(ctx, "", sentimentPrompt(text))
	if err != nil {
		return "", err
	}
	return NormalizeSentiment(label), nil
}

func (p *OpenAIProvider) Answer(ctx context.Context, question, contextText string) (string, error) {
	return p.complete(ctx, answerSystemInstruction, answerPrompt(question, contextText))
}

func (p *OpenAIProvider) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    messages,
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai completion: %v", ErrBackendUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", ErrBackendUnavailable)
	}

	result := strings.TrimSpace(resp.Choices[0].Message.Content)
	if result == "" {
		return "", fmt.Errorf("%w: openai returned an empty completion", ErrBackendUnavailable)
	}
	return result, nil
}
