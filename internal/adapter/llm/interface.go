// Package llm produces the stage responses of the PRD pipeline.
package llm

import (
	"context"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// Generator produces the response text for one pipeline stage.
type Generator interface {
	// Generate returns the response for the stage. The only error it reports is
	// domain.ErrUnknownStage; provider failures are absorbed by the backend.
	Generate(ctx context.Context, stage domain.Stage, prompt string) (string, error)
}

// ChatService is a remote chat-completion provider.
type ChatService interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Ensure Backend implements Generator interface.
var _ Generator = (*Backend)(nil)

// Ensure providers implement ChatService interface.
var (
	_ ChatService = (*OpenAIChat)(nil)
	_ ChatService = (*GeminiChat)(nil)
)
