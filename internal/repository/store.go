// Package store defines the run storage interface and its SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// Store defines the interface for run persistence.
//
// A run has a single writer at a time; concurrent use on distinct run IDs is safe.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, idea string) (*domain.Run, error)
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	UpdateRun(ctx context.Context, run *domain.Run) error
	ListRuns(ctx context.Context, limit, offset int) ([]domain.Run, error)
	ListStaleRuns(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Run, error)

	// Artifact operations
	SaveArtifact(ctx context.Context, runID, artifactType string, content []byte) error
	ReadArtifact(ctx context.Context, runID, artifactType string) ([]byte, error)
	ListArtifacts(ctx context.Context, runID string) ([]string, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Lifecycle
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
