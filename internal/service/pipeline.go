package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/Shodexco/aiproductmanager/internal/domain"
	"github.com/Shodexco/aiproductmanager/internal/prompt"
)

// StartPipeline runs the pipeline for runID on a background goroutine.
func (s *Service) StartPipeline(runID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx := context.Background()
		if s.config.StaleRunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.StaleRunTimeout)
			defer cancel()
		}

		if _, err := s.RunPipeline(ctx, runID); err != nil {
			log.Printf("ERROR: pipeline for run %s failed: %v", runID, err)
		}
	}()
}

// RunPipeline executes the five stages in order for a pending run. On any stage
// error the run is marked failed and the error is returned wrapped in ErrPipelineFailure.
func (s *Service) RunPipeline(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, runID)
	}

	if err := run.SetStatus(domain.RunStatusRunning); err != nil {
		return run, fmt.Errorf("%w: %w", domain.ErrPipelineFailure, err)
	}
	s.active.Store(run.ID, struct{}{})
	defer s.active.Delete(run.ID)

	started := time.Now()
	if err := s.store.UpdateRun(ctx, run); err != nil {
		return s.fail(ctx, run, "", fmt.Errorf("failed to persist run: %w", err))
	}
	if err := s.recordEvent(ctx, run.ID, domain.EventTypeRunStarted, domain.RunStartedPayload{Idea: run.Idea}); err != nil {
		log.Printf("ERROR: failed to record run_started event: %v", err)
	}
	log.Printf("INFO: run %s started", run.ID)

	for _, stage := range domain.Stages {
		if err := s.runStage(ctx, run, stage); err != nil {
			return s.fail(ctx, run, stage, err)
		}
	}

	if err := run.SetStatus(domain.RunStatusCompleted); err != nil {
		return s.fail(ctx, run, "", err)
	}
	if err := s.store.UpdateRun(ctx, run); err != nil {
		return run, fmt.Errorf("%w: failed to persist completed run: %w", domain.ErrPipelineFailure, err)
	}

	if err := s.saveConversation(ctx, run); err != nil {
		log.Printf("ERROR: failed to save conversation for run %s: %v", run.ID, err)
	}

	duration := time.Since(started)
	if err := s.recordEvent(ctx, run.ID, domain.EventTypeRunDone, domain.RunDonePayload{
		Messages:   len(run.Messages),
		DurationMs: duration.Milliseconds(),
	}); err != nil {
		log.Printf("ERROR: failed to record run_done event: %v", err)
	}
	log.Printf("INFO: run %s completed in %s", run.ID, duration.Round(time.Millisecond))
	return run, nil
}

func (s *Service) runStage(ctx context.Context, run *domain.Run, stage domain.Stage) error {
	p, err := prompt.Build(stage, s.stageContext(run, stage))
	if err != nil {
		return fmt.Errorf("failed to build %s prompt: %w", stage, err)
	}
	if err := s.recordEvent(ctx, run.ID, domain.EventTypeStageStarted, domain.StageStartedPayload{
		Stage:        stage,
		Step:         stage.Step(),
		PromptLength: len(p),
	}); err != nil {
		log.Printf("ERROR: failed to record stage_started event: %v", err)
	}

	began := time.Now()
	content, err := s.generator.Generate(ctx, stage, p)
	if err != nil {
		return fmt.Errorf("failed to generate %s response: %w", stage, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Stage artifacts are written before the message so a failed write leaves no message behind.
	switch stage {
	case domain.StageMockupDesigner:
		if !json.Valid([]byte(content)) {
			log.Printf("WARN: mockup for run %s is not valid JSON, saving raw text", run.ID)
		}
		if err := s.saveArtifact(ctx, run, domain.ArtifactMockupJSON, []byte(content)); err != nil {
			return err
		}
	case domain.StageSynthesizer:
		if err := s.saveArtifact(ctx, run, domain.ArtifactPRDMarkdown, []byte(content)); err != nil {
			return err
		}
	}

	msg := run.AddMessage(stage.Role(), content, stage.Step(), map[string]any{
		"agent":         string(stage),
		"prompt_length": len(p),
	})
	if err := s.store.UpdateRun(ctx, run); err != nil {
		run.Messages = run.Messages[:len(run.Messages)-1]
		return fmt.Errorf("failed to persist %s message: %w", stage, err)
	}

	if err := s.recordEvent(ctx, run.ID, domain.EventTypeStageDone, domain.StageDonePayload{
		Stage:         stage,
		Step:          stage.Step(),
		MessageID:     msg.ID,
		ContentLength: len(content),
		LatencyMs:     time.Since(began).Milliseconds(),
	}); err != nil {
		log.Printf("ERROR: failed to record stage_done event: %v", err)
	}

	if stage == domain.StageSynthesizer {
		s.publish(ctx, run, content)
	}
	return nil
}

// stageContext assembles exactly the context keys the stage's prompt needs.
func (s *Service) stageContext(run *domain.Run, stage domain.Stage) map[string]string {
	switch stage {
	case domain.StageStrategist:
		return map[string]string{
			prompt.KeyIdea:         run.Idea,
			prompt.KeyMaxQuestions: strconv.Itoa(s.config.MaxStrategistQuestions),
		}
	case domain.StageArchitect:
		answers, err := json.Marshal(run.UserAnswers)
		if err != nil || run.UserAnswers == nil {
			answers = []byte("{}")
		}
		return map[string]string{
			prompt.KeyIdea:               run.Idea,
			prompt.KeyStrategistAnalysis: run.LastMessage(domain.RoleStrategist),
			prompt.KeyUserAnswers:        string(answers),
		}
	case domain.StageUXWriter:
		return map[string]string{
			prompt.KeyIdea:              run.Idea,
			prompt.KeyArchitectAnalysis: run.LastMessage(domain.RoleArchitect),
		}
	case domain.StageMockupDesigner:
		return map[string]string{
			prompt.KeyIdea:              run.Idea,
			prompt.KeyArchitectAnalysis: run.LastMessage(domain.RoleArchitect),
			prompt.KeyUXWriterAnalysis:  run.LastMessage(domain.RoleUXWriter),
		}
	case domain.StageSynthesizer:
		return map[string]string{
			prompt.KeyConversationHistory: prompt.FormatTranscript(run.Messages),
			prompt.KeyPRDTemplate:         prompt.PRDTemplate(),
		}
	}
	return map[string]string{}
}

func (s *Service) saveArtifact(ctx context.Context, run *domain.Run, artifactType string, data []byte) error {
	if err := s.store.SaveArtifact(ctx, run.ID, artifactType, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", artifactType, err)
	}
	if err := s.recordEvent(ctx, run.ID, domain.EventTypeArtifactSaved, domain.ArtifactSavedPayload{
		ArtifactType: artifactType,
		Location:     run.ArtifactLocation(artifactType),
		Bytes:        len(data),
	}); err != nil {
		log.Printf("ERROR: failed to record artifact_saved event: %v", err)
	}
	return nil
}

// publish renders the PRD document. Failures are recorded but never abort the run.
func (s *Service) publish(ctx context.Context, run *domain.Run, markdown string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, run.ID, markdown)
	if err == nil {
		if err := s.recordEvent(ctx, run.ID, domain.EventTypeArtifactSaved, domain.ArtifactSavedPayload{
			ArtifactType: domain.ArtifactPRDPDF,
			Location:     run.ArtifactLocation(domain.ArtifactPRDPDF),
		}); err != nil {
			log.Printf("ERROR: failed to record artifact_saved event: %v", err)
		}
		return
	}

	log.Printf("WARN: document rendering for run %s failed: %v", run.ID, err)
	if err := s.recordEvent(ctx, run.ID, domain.EventTypeRenderFailed, domain.RenderFailedPayload{Message: err.Error()}); err != nil {
		log.Printf("ERROR: failed to record render_failed event: %v", err)
	}
}

func (s *Service) saveConversation(ctx context.Context, run *domain.Run) error {
	snapshot := domain.ConversationSnapshot{
		RunID:       run.ID,
		Idea:        run.Idea,
		Status:      run.Status,
		CreatedAt:   run.CreatedAt.Format(time.RFC3339Nano),
		Messages:    run.Messages,
		UserAnswers: run.UserAnswers,
		Assumptions: run.Assumptions,
		Artifacts:   run.Artifacts,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339Nano)
		snapshot.CompletedAt = &completed
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return s.saveArtifact(ctx, run, domain.ArtifactConversation, data)
}

// fail marks the run failed and returns cause wrapped in ErrPipelineFailure.
func (s *Service) fail(ctx context.Context, run *domain.Run, stage domain.Stage, cause error) (*domain.Run, error) {
	log.Printf("ERROR: run %s failed at stage %q: %v", run.ID, stage, cause)

	// The run must be marked failed even when ctx was cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := run.SetStatus(domain.RunStatusFailed); err == nil {
		if err := s.store.UpdateRun(ctx, run); err != nil {
			log.Printf("ERROR: failed to persist failed run %s: %v", run.ID, err)
		}
	}
	if err := s.recordEvent(ctx, run.ID, domain.EventTypeRunFailed, domain.RunFailedPayload{
		Code:    failureCode(cause),
		Stage:   stage,
		Message: cause.Error(),
	}); err != nil {
		log.Printf("ERROR: failed to record run_failed event: %v", err)
	}
	return run, fmt.Errorf("%w: %w", domain.ErrPipelineFailure, cause)
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownStage):
		return "unknown_stage"
	case errors.Is(err, domain.ErrContractViolation):
		return "contract_violation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "stage_error"
	}
}
