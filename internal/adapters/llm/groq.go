package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqGenerator calls Groq through the OpenAI chat completions API.
type GroqGenerator struct {
	client openai.Client
}

// NewGroqGenerator creates a Groq generator. SDK retries are disabled;
// callers bound the call with a context deadline instead.
func NewGroqGenerator(apiKey, baseURL string) (*GroqGenerator, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &GroqGenerator{client: client}, nil
}

// Name returns the provider name.
func (g *GroqGenerator) Name() string { return "groq" }

// Generate runs one chat completion.
func (g *GroqGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (entities.Generation, error) {
	start := time.Now()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Tier),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature >= 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return entities.Generation{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return entities.Generation{}, fmt.Errorf("calling groq: %w", err)
	}

	if len(resp.Choices) == 0 {
		return entities.Generation{}, ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return entities.Generation{}, ErrEmptyResponse
	}

	return entities.Generation{
		Text:         text,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
