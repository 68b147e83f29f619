package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"strings"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// CreateRun admits the idea and stores a pending run. The pipeline is not started.
func (s *Service) CreateRun(ctx context.Context, req domain.CreateRunRequest) (*domain.Run, error) {
	idea := strings.TrimSpace(req.Idea)
	if err := s.admit(ctx, idea); err != nil {
		return nil, err
	}

	run, err := s.store.CreateRun(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	if len(req.UserAnswers) > 0 {
		run.UserAnswers = maps.Clone(req.UserAnswers)
		if err := s.store.UpdateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to store user answers: %w", err)
		}
	}
	log.Printf("INFO: run %s created", run.ID)
	return run, nil
}

func (s *Service) admit(ctx context.Context, idea string) error {
	if s.policyEngine == nil {
		if idea == "" {
			return fmt.Errorf("%w: empty idea", domain.ErrIdeaRejected)
		}
		return nil
	}

	decision, err := s.policyEngine.AdmitIdea(ctx, idea, s.config.MaxIdeaLength)
	if err != nil {
		return fmt.Errorf("failed to evaluate admission policy: %w", err)
	}
	if !decision.Allow {
		reason := decision.Reason
		if reason == "" {
			reason = "denied by policy"
		}
		return fmt.Errorf("%w: %s", domain.ErrIdeaRejected, reason)
	}
	return nil
}

// SubmitRun creates a run and starts its pipeline in the background.
func (s *Service) SubmitRun(ctx context.Context, req domain.CreateRunRequest) (*domain.Run, error) {
	run, err := s.CreateRun(ctx, req)
	if err != nil {
		return nil, err
	}
	s.StartPipeline(run.ID)
	return run, nil
}

// IsRejected reports whether err came from the admission policy.
func IsRejected(err error) bool {
	return errors.Is(err, domain.ErrIdeaRejected)
}
