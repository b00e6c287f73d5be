package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// contentGenerator is the part of *genai.GenerativeModel the adapter uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	// model builds a configured model per request; replaced in tests.
	model func(req entities.GenerationRequest) contentGenerator
}

// NewGeminiGenerator creates a Gemini generator.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g := &GeminiGenerator{client: client}
	g.model = g.configuredModel
	return g, nil
}

func (g *GeminiGenerator) configuredModel(req entities.GenerationRequest) contentGenerator {
	m := g.client.GenerativeModel(req.Tier)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Temperature >= 0 {
		m.SetTemperature(float32(req.Temperature))
	}
	return m
}

// Name returns the provider name.
func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate runs one content generation call.
func (g *GeminiGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (entities.Generation, error) {
	start := time.Now()

	resp, err := g.model(req).GenerateContent(ctx, genai.Text(req.UserPrompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return entities.Generation{}, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return entities.Generation{}, fmt.Errorf("calling gemini: %w", err)
	}

	text := geminiText(resp)
	if text == "" {
		return entities.Generation{}, ErrEmptyResponse
	}

	gen := entities.Generation{
		Text:      text,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		gen.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		gen.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return gen, nil
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
