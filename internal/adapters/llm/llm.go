// Package llm provides generator adapters for hosted and local models.
// Each adapter implements ports.Generator; the tier in a request is the
// provider's model identifier.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

var (
	// ErrNoAPIKey is returned when a hosted provider is configured without a key.
	ErrNoAPIKey = errors.New("llm: api key not set")
	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = fmt.Errorf("llm: %w", entities.ErrEmptyGeneration)
	// ErrUnknownProvider is returned by New for unsupported provider names.
	ErrUnknownProvider = errors.New("llm: unknown provider")
	// ErrRateLimited marks provider quota and rate limit rejections.
	ErrRateLimited = fmt.Errorf("llm: rate limited: %w", entities.ErrQuotaExceeded)
)

// Options configures a generator.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
}

// New builds the generator for opts.Provider: groq, gemini or ollama.
func New(ctx context.Context, opts Options) (ports.Generator, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "groq":
		return NewGroqGenerator(opts.APIKey, opts.BaseURL)
	case "gemini":
		return NewGeminiGenerator(ctx, opts.APIKey)
	case "ollama":
		return NewOllamaGenerator(opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
