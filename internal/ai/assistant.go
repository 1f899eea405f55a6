package ai

import (
	"context"
	"fmt"
	"strings"
)

// Options tune a single question.
type Options struct {
	// Model overrides the provider default model.
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens bounds the completion length.
	MaxTokens int
}

// DefaultOptions returns the default question options.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.5,
		MaxTokens:   100,
	}
}

// Assistant answers questions about the current debug context by
// combining retrieved context with a provider completion.
type Assistant struct {
	provider  Provider
	retriever Retriever
	defaults  Options
}

// NewAssistant creates an assistant.
func NewAssistant(provider Provider, retriever Retriever, defaults Options) *Assistant {
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = DefaultOptions().MaxTokens
	}
	return &Assistant{
		provider:  provider,
		retriever: retriever,
		defaults:  defaults,
	}
}

// Provider returns the configured provider.
func (a *Assistant) Provider() Provider {
	return a.provider
}

// Ask retrieves the debugger context, builds the prompt, and asks the
// provider. Zero-valued options fall back to the assistant defaults.
func (a *Assistant) Ask(ctx context.Context, question string, opts Options) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("no question given")
	}

	snap, err := a.retriever.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("gather context: %w", err)
	}

	if opts.Model == "" {
		opts.Model = a.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = a.defaults.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = a.defaults.MaxTokens
	}

	answer, err := a.provider.Complete(ctx, Request{
		Prompt:      BuildPrompt(snap, question),
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", a.provider.Name(), err)
	}

	return strings.TrimSpace(answer), nil
}
