package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// OllamaGenerator calls a local Ollama server.
type OllamaGenerator struct {
	baseURL string
	client  *http.Client
}

// NewOllamaGenerator creates a new Ollama generator.
func NewOllamaGenerator(baseURL string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		// The request context carries the real deadline.
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

// Name returns the provider name.
func (a *OllamaGenerator) Name() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// ollamaChatRequest is the Ollama chat API request.
type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

// ollamaChatResponse is the Ollama chat API response.
type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Generate produces a response given the prompts in req.
func (a *OllamaGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (entities.Generation, error) {
	start := time.Now()

	reqBody := ollamaChatRequest{
		Model: req.Tier,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return entities.Generation{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return entities.Generation{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return entities.Generation{}, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return entities.Generation{}, fmt.Errorf("%w: Ollama returned status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return entities.Generation{}, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return entities.Generation{}, fmt.Errorf("decoding response: %w", err)
	}

	text := strings.TrimSpace(chatResp.Message.Content)
	if text == "" {
		return entities.Generation{}, ErrEmptyResponse
	}

	return entities.Generation{
		Text:         text,
		InputTokens:  chatResp.PromptEvalCount,
		OutputTokens: chatResp.EvalCount,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
