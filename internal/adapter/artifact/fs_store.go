package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// FSStore keeps artifacts under <root>/runs/<run_id>/<filename>.
type FSStore struct {
	root string
}

func NewFSStore(dataDir string) (*FSStore, error) {
	root, err := filepath.Abs(strings.TrimSpace(dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs dir: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) runDir(runID string) string {
	return filepath.Join(s.root, "runs", runID)
}

func (s *FSStore) Location(runID, artifactType string) string {
	name, ok := domain.ArtifactFilenames[artifactType]
	if !ok || strings.TrimSpace(runID) == "" {
		return ""
	}
	return filepath.Join(s.runDir(runID), name)
}

func (s *FSStore) checkLocation(location string) error {
	clean := filepath.Clean(location)
	if !strings.HasPrefix(clean, filepath.Join(s.root, "runs")+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrForeignLocation, location)
	}
	return nil
}

func (s *FSStore) Write(ctx context.Context, location string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkLocation(location); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}

	tmp := location + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, location); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

func (s *FSStore) Read(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.checkLocation(location); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(location)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactMissing, location)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

func (s *FSStore) List(ctx context.Context, runID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.runDir(runID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list run dir: %w", err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		out = append(out, filepath.Join(s.runDir(runID), e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
