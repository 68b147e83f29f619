// Package artifact stores the per-run output files of the pipeline.
package artifact

import (
	"context"
	"errors"
)

// ErrForeignLocation is returned when a location does not belong to the store.
var ErrForeignLocation = errors.New("location does not belong to this store")

// Store persists artifact bytes under opaque location handles.
type Store interface {
	// Location returns the handle for the artifact type of the run, or "" for an unknown type.
	Location(runID, artifactType string) string
	Write(ctx context.Context, location string, data []byte) error
	// Read returns domain.ErrArtifactMissing when nothing was written at location.
	Read(ctx context.Context, location string) ([]byte, error)
	// List returns the locations written for the run, sorted.
	List(ctx context.Context, runID string) ([]string, error)
}

var (
	_ Store = (*FSStore)(nil)
	_ Store = (*S3Store)(nil)
)
