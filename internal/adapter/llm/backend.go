package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// Kind identifies the backend variant.
type Kind string

const (
	KindDeterministic Kind = "deterministic"
	KindRemote        Kind = "remote"
)

// remoteUserMessage is sent as the user turn; the stage prompt travels in the system turn.
const remoteUserMessage = "Please provide your analysis based on your role and the system message."

var errEmptyResponse = errors.New("empty response")

var agentNames = map[domain.Stage]string{
	domain.StageStrategist:     "Product Strategist",
	domain.StageArchitect:      "Solution Architect",
	domain.StageUXWriter:       "UX Writer",
	domain.StageMockupDesigner: "Mockup Designer",
	domain.StageSynthesizer:    "PRD Synthesizer",
}

// Backend generates stage responses either from canned text or from a remote
// chat service. The variant is fixed at construction.
type Backend struct {
	kind    Kind
	chat    ChatService
	timeout time.Duration
}

// NewDeterministic creates a backend that only uses the canned responses.
func NewDeterministic() *Backend {
	return &Backend{kind: KindDeterministic}
}

// NewRemote creates a backend backed by chat. A nil chat yields a deterministic backend.
func NewRemote(chat ChatService, timeout time.Duration) *Backend {
	if chat == nil {
		return NewDeterministic()
	}
	return &Backend{kind: KindRemote, chat: chat, timeout: timeout}
}

// Kind reports the backend variant.
func (b *Backend) Kind() Kind {
	return b.kind
}

// Generate returns the stage response for prompt. Remote text is returned as the
// model wrote it; a remote failure of any kind falls back to the substituted
// canned response for the stage.
func (b *Backend) Generate(ctx context.Context, stage domain.Stage, prompt string) (string, error) {
	raw, ok := CannedResponse(stage)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownStage, stage)
	}

	if b.kind == KindRemote {
		res := b.complete(ctx, stage, prompt)
		if res.err == nil {
			return res.text, nil
		}
		log.Printf("WARN: %s generation via %s failed, using canned response: %v", stage, b.chat.Name(), res.err)
	}

	return Substitute(raw, prompt), nil
}

// remoteResult is the outcome of one remote attempt. Generate collapses it.
type remoteResult struct {
	text string
	err  error
}

func (b *Backend) complete(ctx context.Context, stage domain.Stage, prompt string) remoteResult {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	system := fmt.Sprintf("You are a %s. %s", agentNames[stage], prompt)
	out, err := b.chat.Complete(ctx, system, remoteUserMessage)
	if err != nil {
		return remoteResult{err: err}
	}
	if strings.TrimSpace(out) == "" {
		return remoteResult{err: errEmptyResponse}
	}
	return remoteResult{text: out}
}
