package llm

import (
	"context"
	"log"
	"strings"
	"time"
)

const (
	// EnvPMMode is the environment variable name for mode selection.
	EnvPMMode = "PM_MODE"
	// ModeMock forces the deterministic backend.
	ModeMock = "MOCK"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Options selects and configures the generation backend.
type Options struct {
	Mode          string
	Provider      string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	Seed          int64
	Timeout       time.Duration
}

// NewBackend picks the backend variant once. A remote backend is only built when
// the selected provider has a usable credential; otherwise the deterministic one is used.
func NewBackend(ctx context.Context, opts Options) *Backend {
	if opts.Mode == ModeMock {
		log.Printf("INFO: %s=%s detected, using deterministic backend", EnvPMMode, ModeMock)
		return NewDeterministic()
	}

	switch strings.ToLower(opts.Provider) {
	case ProviderGemini:
		if !usableKey(opts.GeminiAPIKey) {
			log.Printf("INFO: no Gemini API key configured, using deterministic backend")
			return NewDeterministic()
		}
		chat, err := NewGeminiChat(ctx, opts.GeminiAPIKey, opts.GeminiModel, opts.Seed)
		if err != nil {
			log.Printf("WARN: failed to create Gemini client, using deterministic backend: %v", err)
			return NewDeterministic()
		}
		log.Printf("INFO: using remote backend %s", chat.Name())
		return NewRemote(chat, opts.Timeout)
	default:
		if !usableKey(opts.OpenAIAPIKey) {
			log.Printf("INFO: no OpenAI API key configured, using deterministic backend")
			return NewDeterministic()
		}
		chat := NewOpenAIChat(opts.OpenAIAPIKey, opts.OpenAIModel, opts.OpenAIBaseURL, opts.Seed)
		log.Printf("INFO: using remote backend %s", chat.Name())
		return NewRemote(chat, opts.Timeout)
	}
}

// usableKey rejects empty keys and the sample values shipped in .env templates.
func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && !strings.HasPrefix(key, "your_")
}
