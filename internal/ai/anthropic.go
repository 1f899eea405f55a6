package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = string(anthropic.ModelClaudeSonnet4_0)

// AnthropicProvider generates completions through the Anthropic
// messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a provider using ANTHROPIC_API_KEY.
func NewAnthropicProvider() (*AnthropicProvider, error) {
	key, err := apiKey("ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(key)),
	}, nil
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response")
	}
	return b.String(), nil
}
