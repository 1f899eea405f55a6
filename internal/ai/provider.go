// Package ai answers questions about the current debug context using a
// configurable LLM provider.
package ai

import (
	"context"
	"fmt"
	"os"
)

// Request is one completion request to a provider.
type Request struct {
	// Prompt is the full prompt text.
	Prompt string

	// Model overrides the provider's default model when non-empty.
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens bounds the generated completion length.
	MaxTokens int
}

// Provider generates a completion for a prompt.
type Provider interface {
	// Name returns the provider name ("openai", "anthropic", "gemini").
	Name() string

	// Complete generates a completion for the request.
	Complete(ctx context.Context, req Request) (string, error)
}

// NewProvider creates a provider by name. The API key is read from the
// provider's conventional environment variable.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "openai", "":
		return NewOpenAIProvider()
	case "anthropic", "claude":
		return NewAnthropicProvider()
	case "gemini", "google":
		return NewGeminiProvider()
	default:
		return nil, fmt.Errorf("unknown ai provider: %q", name)
	}
}

// apiKey reads an API key environment variable and tells the user which
// one to set when it is missing.
func apiKey(envVar string) (string, error) {
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("please set the %s environment variable", envVar)
	}
	return key, nil
}
