package domain

// CreateRunRequest is the body of POST /v1/runs.
type CreateRunRequest struct {
	Idea        string            `json:"idea"`
	UserAnswers map[string]string `json:"user_answers,omitempty"`
}

// CreateRunResponse is returned after a run has been accepted.
type CreateRunResponse struct {
	RunID     string            `json:"run_id"`
	Status    RunStatus         `json:"status"`
	Artifacts map[string]string `json:"artifacts"`
}

// ArtifactResponse carries a text artifact inline.
type ArtifactResponse struct {
	RunID        string `json:"run_id"`
	ArtifactType string `json:"artifact_type"`
	Content      string `json:"content"`
	Filename     string `json:"filename"`
}

// BundleResponse describes a created bundle.
type BundleResponse struct {
	Message     string `json:"message"`
	RunID       string `json:"run_id"`
	BundlePath  string `json:"bundle_path"`
	DownloadURL string `json:"download_url"`
}

// ConversationSnapshot is the persisted form of the conversation artifact.
type ConversationSnapshot struct {
	RunID       string            `json:"run_id"`
	Idea        string            `json:"idea"`
	Status      RunStatus         `json:"status"`
	CreatedAt   string            `json:"created_at"`
	CompletedAt *string           `json:"completed_at"`
	Messages    []Message         `json:"messages"`
	UserAnswers map[string]string `json:"user_answers"`
	Assumptions []string          `json:"assumptions"`
	Artifacts   map[string]string `json:"artifacts"`
}
