// Package document turns the synthesized PRD markdown into the prd_pdf artifact.
package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// Renderer converts markdown to a binary document.
type Renderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

// ArtifactWriter saves artifact bytes for a run.
type ArtifactWriter interface {
	SaveArtifact(ctx context.Context, runID, artifactType string, content []byte) error
}

// Sink renders the PRD and stores it in the run's prd_pdf slot.
type Sink struct {
	renderer  Renderer
	artifacts ArtifactWriter
}

func NewSink(renderer Renderer, artifacts ArtifactWriter) *Sink {
	return &Sink{renderer: renderer, artifacts: artifacts}
}

// Publish renders markdown and saves the result. When rendering fails a plain-text
// placeholder holding the markdown is saved instead and an ErrRenderFailed error is returned.
func (s *Sink) Publish(ctx context.Context, runID, markdown string) error {
	pdf, err := s.renderer.Render(ctx, markdown)
	if err == nil {
		if err := s.artifacts.SaveArtifact(ctx, runID, domain.ArtifactPRDPDF, pdf); err != nil {
			return fmt.Errorf("%w: failed to save pdf: %w", domain.ErrRenderFailed, err)
		}
		return nil
	}

	if saveErr := s.artifacts.SaveArtifact(ctx, runID, domain.ArtifactPRDPDF, Placeholder(markdown)); saveErr != nil {
		return fmt.Errorf("%w: %w (placeholder not saved: %v)", domain.ErrRenderFailed, err, saveErr)
	}
	return fmt.Errorf("%w: %w", domain.ErrRenderFailed, err)
}

const placeholderTitle = "PDF Generation Placeholder"

// Placeholder is the text document stored when PDF rendering fails.
func Placeholder(markdown string) []byte {
	var b strings.Builder
	b.WriteString(placeholderTitle + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	b.WriteString("The PDF could not be rendered. Here's the PRD content:\n\n")
	b.WriteString(markdown)
	return []byte(b.String())
}

// IsPDF reports whether data is a PDF rather than a placeholder.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
