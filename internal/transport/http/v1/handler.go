// Package v1 provides the versioned HTTP handlers of the PRD pipeline service.
package v1

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Shodexco/aiproductmanager/internal/domain"
	"github.com/Shodexco/aiproductmanager/internal/service"
)

const version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/runs", h.CreateRun)
	e.GET("/v1/runs", h.ListRuns)
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)
	e.GET("/v1/runs/:run_id/stream", h.StreamRunEvents)
	e.GET("/v1/runs/:run_id/artifacts/:artifact_type", h.GetArtifact)
	e.POST("/v1/runs/:run_id/bundle", h.CreateBundle)
	e.GET("/v1/runs/:run_id/download", h.DownloadBundle)

	e.GET("/health", h.Health)
	e.GET("/", h.Root)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

// Root describes the service.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "AI Product Manager",
		"version": version,
		"stages":  domain.Stages,
	})
}

// errorResponse maps service errors onto HTTP status codes.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnknownArtifact),
		errors.Is(err, domain.ErrArtifactMissing):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIdeaRejected):
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
