package domain

// RunStartedPayload is the payload for run_started event.
type RunStartedPayload struct {
	Idea string `json:"idea"`
}

// StageStartedPayload is the payload for stage_started event.
type StageStartedPayload struct {
	Stage        Stage `json:"stage"`
	Step         int   `json:"step"`
	PromptLength int   `json:"prompt_length"`
}

// StageDonePayload is the payload for stage_done event.
type StageDonePayload struct {
	Stage         Stage  `json:"stage"`
	Step          int    `json:"step"`
	MessageID     string `json:"message_id"`
	ContentLength int    `json:"content_length"`
	LatencyMs     int64  `json:"latency_ms"`
}

// ArtifactSavedPayload is the payload for artifact_saved event.
type ArtifactSavedPayload struct {
	ArtifactType string `json:"artifact_type"`
	Location     string `json:"location"`
	Bytes        int    `json:"bytes"`
}

// RenderFailedPayload is the payload for render_failed event.
type RenderFailedPayload struct {
	Message string `json:"message"`
}

// RunDonePayload is the payload for run_done event.
type RunDonePayload struct {
	Messages   int   `json:"messages"`
	DurationMs int64 `json:"duration_ms"`
}

// RunFailedPayload is the payload for run_failed and run_reaped events.
type RunFailedPayload struct {
	Code    string `json:"code"`
	Stage   Stage  `json:"stage,omitempty"`
	Message string `json:"message"`
}
