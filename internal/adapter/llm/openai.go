package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	defaultOpenAIModel = "gpt-4-turbo-preview"
	remoteTemperature  = 0.7
)

// OpenAIChat calls the OpenAI Chat Completions API, or any compatible endpoint.
type OpenAIChat struct {
	client openai.Client
	model  string
	seed   int64
}

// NewOpenAIChat creates a chat service. An empty baseURL uses the OpenAI default.
func NewOpenAIChat(apiKey, model, baseURL string, seed int64) *OpenAIChat {
	if model == "" {
		model = defaultOpenAIModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIChat{
		client: openai.NewClient(opts...),
		model:  model,
		seed:   seed,
	}
}

func (c *OpenAIChat) Name() string { return "openai:" + c.model }

// Complete sends a system and a user message and returns the first choice's content.
func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(remoteTemperature),
		Seed:        openai.Int(c.seed),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
