package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Run is one end-to-end pipeline invocation for a single product idea.
type Run struct {
	ID          string            `json:"id"`
	Idea        string            `json:"idea"`
	Status      RunStatus         `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Messages    []Message         `json:"messages"`
	UserAnswers map[string]string `json:"user_answers"`
	Assumptions []string          `json:"assumptions"`
	Artifacts   map[string]string `json:"artifacts"`
	Metadata    map[string]any    `json:"metadata"`
}

// Message is one agent emission. Messages are never edited after being appended.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Step      int            `json:"step"`
	Metadata  map[string]any `json:"metadata"`
}

// Event represents a trace event for replay.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewRun creates a pending run for the idea.
func NewRun(idea string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:          "run_" + uuid.NewString(),
		Idea:        idea,
		Status:      RunStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Messages:    []Message{},
		UserAnswers: map[string]string{},
		Assumptions: []string{},
		Artifacts:   map[string]string{},
		Metadata:    map[string]any{},
	}
}

func (r *Run) touch() {
	r.UpdatedAt = time.Now().UTC()
}

// AddMessage appends a message and returns it.
func (r *Run) AddMessage(role Role, content string, step int, metadata map[string]any) Message {
	if metadata == nil {
		metadata = map[string]any{}
	}
	msg := Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Step:      step,
		Metadata:  metadata,
	}
	r.Messages = append(r.Messages, msg)
	r.touch()
	return msg
}

// LastMessage returns the content of the most recent message with the role, or "".
func (r *Run) LastMessage(role Role) string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == role {
			return r.Messages[i].Content
		}
	}
	return ""
}

// SetStatus moves the run along pending -> running -> {completed, failed}.
// CompletedAt is stamped on the transition into completed.
func (r *Run) SetStatus(status RunStatus) error {
	if !canTransition(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
	}
	r.Status = status
	r.touch()
	if status == RunStatusCompleted {
		completed := r.UpdatedAt
		r.CompletedAt = &completed
	}
	return nil
}

func canTransition(from, to RunStatus) bool {
	switch from {
	case RunStatusPending:
		return to == RunStatusRunning
	case RunStatusRunning:
		return to == RunStatusCompleted || to == RunStatusFailed
	}
	return false
}

// AddAssumption appends an assumption. Assumptions are never removed.
func (r *Run) AddAssumption(assumption string) {
	r.Assumptions = append(r.Assumptions, assumption)
	r.touch()
}

// SetArtifact registers the location of an artifact slot.
// Re-registering the same location is a no-op; a different location is refused.
func (r *Run) SetArtifact(artifactType, location string) error {
	if r.Artifacts == nil {
		r.Artifacts = map[string]string{}
	}
	if existing, ok := r.Artifacts[artifactType]; ok {
		if existing == location {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrArtifactRebind, artifactType)
	}
	r.Artifacts[artifactType] = location
	r.touch()
	return nil
}

// ArtifactLocation returns the registered location of the artifact slot, or "".
func (r *Run) ArtifactLocation(artifactType string) string {
	return r.Artifacts[artifactType]
}

// Clone returns a deep copy so cached runs cannot be mutated by callers.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	c.Messages = make([]Message, len(r.Messages))
	for i, m := range r.Messages {
		m.Metadata = maps.Clone(m.Metadata)
		c.Messages[i] = m
	}
	c.UserAnswers = maps.Clone(r.UserAnswers)
	c.Assumptions = slices.Clone(r.Assumptions)
	c.Artifacts = maps.Clone(r.Artifacts)
	c.Metadata = maps.Clone(r.Metadata)
	return &c
}
