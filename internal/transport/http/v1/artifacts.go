package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Shodexco/aiproductmanager/internal/adapter/document"
	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// GetArtifact returns one artifact. Text artifacts are returned inline as JSON,
// binary artifacts as a file download.
// GET /v1/runs/:run_id/artifacts/:artifact_type
func (h *Handler) GetArtifact(c echo.Context) error {
	runID := c.Param("run_id")
	artifactType := c.Param("artifact_type")

	filename, ok := domain.ArtifactFilenames[artifactType]
	if !ok {
		return errorResponse(c, fmt.Errorf("%w: %s", domain.ErrUnknownArtifact, artifactType))
	}

	data, err := h.service.ReadArtifact(c.Request().Context(), runID, artifactType)
	if err != nil {
		return errorResponse(c, err)
	}

	switch artifactType {
	case domain.ArtifactPRDPDF:
		if !document.IsPDF(data) {
			return attachment(c, "text/plain; charset=utf-8", "PRD.txt", data)
		}
		return attachment(c, "application/pdf", filename, data)
	case domain.ArtifactBundle:
		return attachment(c, "application/zip", filename, data)
	}

	return c.JSON(http.StatusOK, domain.ArtifactResponse{
		RunID:        runID,
		ArtifactType: artifactType,
		Content:      string(data),
		Filename:     filename,
	})
}

// CreateBundle zips the run's artifacts and stores the archive.
// POST /v1/runs/:run_id/bundle
func (h *Handler) CreateBundle(c echo.Context) error {
	runID := c.Param("run_id")
	if _, err := h.service.CreateBundle(c.Request().Context(), runID); err != nil {
		return errorResponse(c, err)
	}

	run, err := h.service.GetRun(c.Request().Context(), runID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, domain.BundleResponse{
		Message:     "Bundle created successfully",
		RunID:       runID,
		BundlePath:  run.ArtifactLocation(domain.ArtifactBundle),
		DownloadURL: fmt.Sprintf("/v1/runs/%s/download", runID),
	})
}

// DownloadBundle creates a fresh bundle and streams it.
// GET /v1/runs/:run_id/download
func (h *Handler) DownloadBundle(c echo.Context) error {
	data, err := h.service.CreateBundle(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return attachment(c, "application/zip", domain.ArtifactFilenames[domain.ArtifactBundle], data)
}

func attachment(c echo.Context, contentType, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, data)
}
