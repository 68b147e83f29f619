package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

const staleRunSweepInterval = 30 * time.Second

// RunStaleRunMonitor periodically fails runs left in running by a process that died mid-pipeline.
func (s *Service) RunStaleRunMonitor(ctx context.Context) {
	if s.config.StaleRunTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(staleRunSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ReapStaleRuns(ctx); err != nil {
				log.Printf("WARN: stale run sweep failed: %v", err)
			}
		}
	}
}

// ReapStaleRuns marks as failed every run that has been running without progress for
// longer than the configured timeout and whose pipeline is not executing in this process.
// It returns the number of runs reaped.
func (s *Service) ReapStaleRuns(ctx context.Context) (int, error) {
	if s.config.StaleRunTimeout <= 0 {
		return 0, nil
	}
	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stale, err := s.store.ListStaleRuns(sweepCtx, s.config.StaleRunTimeout, 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale runs: %w", err)
	}

	reaped := 0
	for _, r := range stale {
		if _, running := s.active.Load(r.ID); running {
			continue
		}
		run, err := s.store.GetRun(sweepCtx, r.ID)
		if err != nil || run == nil {
			log.Printf("WARN: failed to load stale run %s: %v", r.ID, err)
			continue
		}
		if err := run.SetStatus(domain.RunStatusFailed); err != nil {
			continue
		}
		if err := s.store.UpdateRun(sweepCtx, run); err != nil {
			log.Printf("WARN: failed to mark stale run %s failed: %v", r.ID, err)
			continue
		}

		payload := domain.RunFailedPayload{
			Code:    "stale",
			Message: fmt.Sprintf("no progress for %s", s.config.StaleRunTimeout),
		}
		if err := s.recordEvent(sweepCtx, run.ID, domain.EventTypeRunReaped, payload); err != nil {
			log.Printf("WARN: failed to record run_reaped event %s: %v", run.ID, err)
		}
		log.Printf("WARN: run %s reaped after %s without progress", run.ID, s.config.StaleRunTimeout)
		reaped++
	}
	return reaped, nil
}
