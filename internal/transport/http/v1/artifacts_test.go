package v1

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Shodexco/aiproductmanager/internal/adapter/document"
	"github.com/Shodexco/aiproductmanager/internal/domain"
)

func getArtifact(t *testing.T, h *Handler, runID, artifactType string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id", "artifact_type")
	c.SetParamValues(runID, artifactType)

	if err := h.GetArtifact(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestGetArtifactText(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	run := completedRun(t, svc, "fitness app")

	rec := getArtifact(t, h, run.ID, domain.ArtifactPRDMarkdown)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp domain.ArtifactResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Filename != "PRD.md" || !strings.Contains(resp.Content, "Fitness Tracker") {
		t.Fatalf("unexpected artifact: %+v", resp)
	}
}

func TestGetArtifactPDF(t *testing.T) {
	h, svc, db := newTestHandler(t)
	run := completedRun(t, svc, "fitness app")

	rec := getArtifact(t, h, run.ID, domain.ArtifactPRDPDF)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "application/pdf" {
		t.Fatalf("expected pdf, got %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if !document.IsPDF(rec.Body.Bytes()) {
		t.Fatalf("body is not a pdf")
	}

	if err := db.SaveArtifact(context.Background(), run.ID, domain.ArtifactPRDPDF, document.Placeholder("# PRD")); err != nil {
		t.Fatalf("SaveArtifact failed: %v", err)
	}
	rec = getArtifact(t, h, run.ID, domain.ArtifactPRDPDF)
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "PRD.txt") {
		t.Fatalf("expected placeholder served as PRD.txt, got %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
}

func TestGetArtifactNotFound(t *testing.T) {
	h, svc, _ := newTestHandler(t)
	run, err := svc.CreateRun(context.Background(), domain.CreateRunRequest{Idea: "fitness app"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	tests := []struct {
		name         string
		runID        string
		artifactType string
	}{
		{"unknown type", run.ID, "slides"},
		{"not yet written", run.ID, domain.ArtifactPRDMarkdown},
		{"unknown run", "run_missing", domain.ArtifactPRDMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := getArtifact(t, h, tt.runID, tt.artifactType)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", rec.Code)
			}
		})
	}
}

func TestDownloadBundle(t *testing.T) {
	e := echo.New()
	h, svc, _ := newTestHandler(t)
	run := completedRun(t, svc, "fitness app")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues(run.ID)

	if err := h.DownloadBundle(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "application/zip" {
		t.Fatalf("expected zip, got %d %s", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("invalid zip: %v", err)
	}
	if len(zr.File) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(zr.File))
	}
}

func TestCreateBundle(t *testing.T) {
	e := echo.New()
	h, svc, _ := newTestHandler(t)
	run := completedRun(t, svc, "fitness app")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues(run.ID)

	if err := h.CreateBundle(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp domain.BundleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasSuffix(resp.BundlePath, "bundle.zip") || resp.DownloadURL != "/v1/runs/"+run.ID+"/download" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
