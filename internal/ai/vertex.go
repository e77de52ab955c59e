package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// VertexBackend calls Gemini models through Vertex AI. Credentials come from
// Application Default Credentials (GOOGLE_APPLICATION_CREDENTIALS).
type VertexBackend struct {
	cli   *genai.Client
	model string
}

func NewVertexBackend(ctx context.Context, project, location, model string) (*VertexBackend, error) {
	if strings.TrimSpace(project) == "" {
		return nil, fmt.Errorf("vertex: project id is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("vertex: init client: %w", err)
	}
	return &VertexBackend{cli: cli, model: model}, nil
}

func (v *VertexBackend) Name() string { return "Vertex:" + v.model }

func (v *VertexBackend) Generate(ctx context.Context, action Action, p Payload) (string, error) {
	prompt, err := BuildPrompt(action, p)
	if err != nil {
		return "", err
	}

	resp, err := v.cli.Models.GenerateContent(ctx, v.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.7),
			MaxOutputTokens:  1000,
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "{}", nil
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
