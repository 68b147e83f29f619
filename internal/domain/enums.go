// Package domain defines the core domain models for the PRD pipeline.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no transition leaves the status.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Role identifies the author of a message.
type Role string

const (
	RoleStrategist     Role = "strategist"
	RoleArchitect      Role = "architect"
	RoleUXWriter       Role = "ux_writer"
	RoleMockupDesigner Role = "mockup_designer"
	RoleSynthesizer    Role = "synthesizer"
	RoleUser           Role = "user"
	RoleSystem         Role = "system"
)

// Stage is one of the five fixed pipeline steps.
type Stage string

const (
	StageStrategist     Stage = "strategist"
	StageArchitect      Stage = "architect"
	StageUXWriter       Stage = "ux_writer"
	StageMockupDesigner Stage = "mockup_designer"
	StageSynthesizer    Stage = "synthesizer"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{
	StageStrategist,
	StageArchitect,
	StageUXWriter,
	StageMockupDesigner,
	StageSynthesizer,
}

// Step returns the 1-based pipeline position of the stage, or 0 if unknown.
func (s Stage) Step() int {
	for i, st := range Stages {
		if st == s {
			return i + 1
		}
	}
	return 0
}

// Role returns the message role emitted by the stage.
func (s Stage) Role() Role {
	return Role(s)
}

// EventType represents the type of a trace event.
type EventType string

const (
	EventTypeRunStarted    EventType = "run_started"
	EventTypeStageStarted  EventType = "stage_started"
	EventTypeStageDone     EventType = "stage_done"
	EventTypeArtifactSaved EventType = "artifact_saved"
	EventTypeRenderFailed  EventType = "render_failed"
	EventTypeRunDone       EventType = "run_done"
	EventTypeRunFailed     EventType = "run_failed"
	EventTypeRunReaped     EventType = "run_reaped"
)

// Artifact slot names registered for every run.
const (
	ArtifactPRDMarkdown  = "prd_markdown"
	ArtifactPRDPDF       = "prd_pdf"
	ArtifactConversation = "conversation"
	ArtifactMockupJSON   = "mockup_json"
	ArtifactBundle       = "bundle"
)

// ArtifactTypes lists the artifact slots in registration order.
var ArtifactTypes = []string{
	ArtifactPRDMarkdown,
	ArtifactPRDPDF,
	ArtifactConversation,
	ArtifactMockupJSON,
	ArtifactBundle,
}

// ArtifactFilenames maps each artifact slot to its file name inside a run directory.
var ArtifactFilenames = map[string]string{
	ArtifactPRDMarkdown:  "PRD.md",
	ArtifactPRDPDF:       "PRD.pdf",
	ArtifactConversation: "conversation.json",
	ArtifactMockupJSON:   "mockup.json",
	ArtifactBundle:       "bundle.zip",
}

// IsJSONArtifact reports whether the slot holds JSON that should be canonicalized on save.
func IsJSONArtifact(artifactType string) bool {
	return artifactType == ArtifactConversation || artifactType == ArtifactMockupJSON
}
