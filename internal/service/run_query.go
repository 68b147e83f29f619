package service

import (
	"context"
	"fmt"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// GetRun returns the run or ErrNotFound.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, runID)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error) {
	runs, err := s.store.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (s *Service) GetRunEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	events, err := s.store.GetEvents(ctx, runID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get run events: %w", err)
	}
	return events, nil
}

// ReadArtifact returns the stored content of one of the run's artifacts.
func (s *Service) ReadArtifact(ctx context.Context, runID, artifactType string) ([]byte, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.ReadArtifact(ctx, runID, artifactType)
}
