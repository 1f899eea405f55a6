package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider generates completions through the Google generative
// AI API. The client is created lazily on first use because it needs a
// context.
type GeminiProvider struct {
	key string

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a provider using GEMINI_API_KEY.
func NewGeminiProvider() (*GeminiProvider, error) {
	key, err := apiKey("GEMINI_API_KEY")
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{key: key}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.key))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

// Close releases the underlying client connection.
func (p *GeminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	name := req.Model
	if name == "" {
		name = defaultGeminiModel
	}

	model := client.GenerativeModel(name)
	model.SetTemperature(float32(req.Temperature))
	model.SetMaxOutputTokens(int32(req.MaxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
