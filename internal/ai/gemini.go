package ai

import (
	"context"
	"fmt"
	"strings"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend talks to the Gemini API with an API key. It needs no IAM
// setup, which is why it serves as the fallback for Vertex AI.
type GeminiBackend struct {
	cli   *gemini.Client
	model *gemini.GenerativeModel
	name  string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	c, err := gemini.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: init client: %w", err)
	}
	m := c.GenerativeModel(model)
	m.SetTemperature(0.7)
	m.SetMaxOutputTokens(500)
	return &GeminiBackend{cli: c, model: m, name: model}, nil
}

func (g *GeminiBackend) Name() string { return "Gemini:" + g.name }

func (g *GeminiBackend) Close() error { return g.cli.Close() }

func (g *GeminiBackend) Generate(ctx context.Context, action Action, p Payload) (string, error) {
	prompt, err := BuildFallbackPrompt(action, p)
	if err != nil {
		return "", err
	}
	resp, err := g.model.GenerateContent(ctx, gemini.Text(prompt))
	if err != nil {
		return "", err
	}
	return firstText(resp), nil
}

func firstText(r *gemini.GenerateContentResponse) string {
	if r == nil {
		return "{}"
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(gemini.Text); ok {
				return string(t)
			}
		}
	}
	return "{}"
}
