package domain

import "errors"

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("run not found")

	// ErrPipelineFailure wraps any error that aborts a pipeline run.
	ErrPipelineFailure = errors.New("pipeline failure")

	// ErrRenderFailed is returned by the document sink; the pipeline only logs it.
	ErrRenderFailed = errors.New("document rendering failed")

	// ErrContractViolation marks a programming error such as a prompt context mismatch.
	ErrContractViolation = errors.New("contract violation")

	// ErrUnknownStage is returned for a stage outside the fixed pipeline.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrInvalidTransition is returned when a status change breaks the run state machine.
	ErrInvalidTransition = errors.New("invalid run status transition")

	// ErrArtifactRebind is returned when an artifact slot would move to a different location.
	ErrArtifactRebind = errors.New("artifact location already registered")

	// ErrUnknownArtifact is returned for an artifact type with no registered slot.
	ErrUnknownArtifact = errors.New("unknown artifact type")

	// ErrArtifactMissing is returned when an artifact slot exists but nothing was written to it.
	ErrArtifactMissing = errors.New("artifact not written")

	// ErrIdeaRejected is returned when the admission policy denies a new run.
	ErrIdeaRejected = errors.New("idea rejected")
)
