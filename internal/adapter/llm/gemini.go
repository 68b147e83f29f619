package llm

import (
	"context"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiChat calls the Gemini API through the official genai client.
type GeminiChat struct {
	cli   *genai.Client
	model string
	seed  int32
}

func NewGeminiChat(ctx context.Context, apiKey, model string, seed int64) (*GeminiChat, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiChat{cli: cli, model: model, seed: int32(seed)}, nil
}

func (g *GeminiChat) Name() string { return "gemini:" + g.model }

func (g *GeminiChat) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := float32(remoteTemperature)
	seed := g.seed
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       &temperature,
			Seed:              &seed,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
