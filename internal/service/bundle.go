package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Shodexco/aiproductmanager/internal/adapter/document"
	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// CreateBundle zips every stored artifact of the run except a previous bundle,
// saves the archive in the bundle slot and returns it.
func (s *Service) CreateBundle(ctx context.Context, runID string) ([]byte, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	types, err := s.store.ListArtifacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, t := range types {
		if t == domain.ArtifactBundle {
			continue
		}
		data, err := s.store.ReadArtifact(ctx, runID, t)
		if errors.Is(err, domain.ErrArtifactMissing) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", t, err)
		}

		name := domain.ArtifactFilenames[t]
		if t == domain.ArtifactPRDPDF && !document.IsPDF(data) {
			name = "PRD.txt"
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to bundle: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write %s to bundle: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish bundle: %w", err)
	}

	if err := s.saveArtifact(ctx, run, domain.ArtifactBundle, buf.Bytes()); err != nil {
		return nil, err
	}
	log.Printf("INFO: bundle created for run %s (%d bytes)", runID, buf.Len())
	return buf.Bytes(), nil
}
