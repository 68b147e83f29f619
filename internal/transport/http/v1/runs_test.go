package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Shodexco/aiproductmanager/internal/adapter/document"
	"github.com/Shodexco/aiproductmanager/internal/adapter/llm"
	"github.com/Shodexco/aiproductmanager/internal/config"
	"github.com/Shodexco/aiproductmanager/internal/domain"
	"github.com/Shodexco/aiproductmanager/internal/repository"
	"github.com/Shodexco/aiproductmanager/internal/service"
	"github.com/Shodexco/aiproductmanager/policy"
	"github.com/Shodexco/aiproductmanager/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service, store.Store) {
	cfg := &config.Config{
		MaxStrategistQuestions: 5,
		MaxIdeaLength:          2000,
		StaleRunTimeout:        time.Minute,
	}
	db := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	sink := document.NewSink(document.NewPDFRenderer(), db)
	svc := service.New(db, llm.NewDeterministic(), sink, cfg, policyEngine)
	return NewHandler(svc), svc, db
}

// completedRun creates a run and drives it to completion synchronously.
func completedRun(t *testing.T, svc *service.Service, idea string) *domain.Run {
	t.Helper()
	ctx := context.Background()
	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: idea})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	done, err := svc.RunPipeline(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	return done
}

func TestCreateRunValidation(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	for _, body := range []string{`{"idea":"   "}`, `{"idea":`} {
		req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := h.CreateRun(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestCreateRunSuccess(t *testing.T) {
	e := echo.New()
	h, svc, db := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", bytes.NewBufferString(`{"idea":"fitness app"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateRun(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp domain.CreateRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" || resp.Status != domain.RunStatusPending || len(resp.Artifacts) != len(domain.ArtifactTypes) {
		t.Fatalf("unexpected response: %+v", resp)
	}

	svc.Wait()
	run, err := db.GetRun(context.Background(), resp.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
}

func TestGetRun(t *testing.T) {
	e := echo.New()
	h, svc, _ := newTestHandler(t)
	run := completedRun(t, svc, "budget planner")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues(run.ID)

	if err := h.GetRun(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != domain.RunStatusCompleted || len(got.Messages) != 5 {
		t.Fatalf("unexpected run: %s with %d messages", got.Status, len(got.Messages))
	}
}

func TestGetRunNotFound(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")

	if err := h.GetRun(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListRuns(t *testing.T) {
	e := echo.New()
	h, svc, _ := newTestHandler(t)
	ctx := context.Background()
	for _, idea := range []string{"one", "two", "three"} {
		if _, err := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: idea}); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=2&offset=bad", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRuns(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Runs   []domain.Run `json:"runs"`
		Limit  int          `json:"limit"`
		Offset int          `json:"offset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Runs) != 2 || resp.Limit != 2 || resp.Offset != 0 {
		t.Fatalf("unexpected page: %+v", resp)
	}
}

func TestGetRunEventsFiltersByType(t *testing.T) {
	e := echo.New()
	h, svc, _ := newTestHandler(t)
	run := completedRun(t, svc, "fitness app")

	req := httptest.NewRequest(http.MethodGet, "/?type=stage_started&type=run_done", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues(run.ID)

	if err := h.GetRunEvents(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(resp.Events))
	}
	if resp.Events[5].Type != domain.EventTypeRunDone {
		t.Fatalf("expected run_done last, got %s", resp.Events[5].Type)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
