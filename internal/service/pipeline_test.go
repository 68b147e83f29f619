package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Shodexco/aiproductmanager/internal/adapter/document"
	"github.com/Shodexco/aiproductmanager/internal/adapter/llm"
	"github.com/Shodexco/aiproductmanager/internal/config"
	"github.com/Shodexco/aiproductmanager/internal/domain"
	"github.com/Shodexco/aiproductmanager/internal/repository"
	"github.com/Shodexco/aiproductmanager/policy"
	"github.com/Shodexco/aiproductmanager/tests/helpers"
)

// scriptedGenerator wraps the deterministic backend, recording prompts and
// optionally overriding or failing individual stages.
type scriptedGenerator struct {
	inner    llm.Generator
	failAt   domain.Stage
	override map[domain.Stage]string
	prompts  map[domain.Stage]string
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		inner:    llm.NewDeterministic(),
		override: map[domain.Stage]string{},
		prompts:  map[domain.Stage]string{},
	}
}

func (g *scriptedGenerator) Generate(ctx context.Context, stage domain.Stage, prompt string) (string, error) {
	g.prompts[stage] = prompt
	if stage == g.failAt {
		return "", errors.New("provider unavailable")
	}
	if out, ok := g.override[stage]; ok {
		return out, nil
	}
	return g.inner.Generate(ctx, stage, prompt)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, runID, markdown string) error {
	return domain.ErrRenderFailed
}

func newTestService(t *testing.T, gen llm.Generator, publisher Publisher) (*Service, store.Store) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{
		MaxStrategistQuestions: 5,
		MaxIdeaLength:          2000,
		StaleRunTimeout:        30 * time.Minute,
	}
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if publisher == nil {
		publisher = document.NewSink(document.NewPDFRenderer(), db)
	}
	return New(db, gen, publisher, cfg, policyEngine), db
}

func eventTypes(t *testing.T, db store.Store, runID string) []domain.EventType {
	t.Helper()
	events, err := db.GetEvents(context.Background(), runID, 0, nil, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	types := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func containsEvent(types []domain.EventType, want domain.EventType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func TestRunPipelineCompletes(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, llm.NewDeterministic(), nil)

	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "  fitness app  "})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.Idea != "fitness app" {
		t.Fatalf("expected trimmed idea, got %q", run.Idea)
	}

	done, err := svc.RunPipeline(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if done.Status != domain.RunStatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected completed run with completion time, got %s %v", done.Status, done.CompletedAt)
	}
	if len(done.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(done.Messages))
	}
	for i, stage := range domain.Stages {
		m := done.Messages[i]
		if m.Role != stage.Role() || m.Step != i+1 {
			t.Fatalf("message %d: expected %s step %d, got %s step %d", i, stage.Role(), i+1, m.Role, m.Step)
		}
		if m.Metadata["agent"] != string(stage) {
			t.Fatalf("message %d: unexpected metadata %v", i, m.Metadata)
		}
	}

	prd, err := db.ReadArtifact(ctx, run.ID, domain.ArtifactPRDMarkdown)
	if err != nil {
		t.Fatalf("ReadArtifact prd failed: %v", err)
	}
	if !strings.Contains(string(prd), "Fitness Tracker") || !strings.Contains(string(prd), "## 12. Execution Plan") {
		t.Fatalf("unexpected PRD: %s", prd)
	}

	pdf, err := db.ReadArtifact(ctx, run.ID, domain.ArtifactPRDPDF)
	if err != nil {
		t.Fatalf("ReadArtifact pdf failed: %v", err)
	}
	if !document.IsPDF(pdf) {
		t.Fatalf("expected a PDF document")
	}

	mockup, err := db.ReadArtifact(ctx, run.ID, domain.ArtifactMockupJSON)
	if err != nil {
		t.Fatalf("ReadArtifact mockup failed: %v", err)
	}
	var screens struct {
		ProductName string `json:"product_name"`
	}
	if err := json.Unmarshal(mockup, &screens); err != nil || screens.ProductName != "Fitness Tracker" {
		t.Fatalf("unexpected mockup %s: %v", mockup, err)
	}

	raw, err := db.ReadArtifact(ctx, run.ID, domain.ArtifactConversation)
	if err != nil {
		t.Fatalf("ReadArtifact conversation failed: %v", err)
	}
	var snapshot domain.ConversationSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		t.Fatalf("conversation is not JSON: %v", err)
	}
	if snapshot.Status != domain.RunStatusCompleted || snapshot.CompletedAt == nil || len(snapshot.Messages) != 5 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	types := eventTypes(t, db, run.ID)
	if types[0] != domain.EventTypeRunStarted || types[len(types)-1] != domain.EventTypeRunDone {
		t.Fatalf("unexpected event order: %v", types)
	}
}

func TestRunPipelineIsReproducible(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, llm.NewDeterministic(), nil)

	var contents [2][]string
	for i := range contents {
		run, err := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "budget planner"})
		if err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
		done, err := svc.RunPipeline(ctx, run.ID)
		if err != nil {
			t.Fatalf("RunPipeline failed: %v", err)
		}
		for _, m := range done.Messages {
			contents[i] = append(contents[i], m.Content)
		}
	}
	for i := range contents[0] {
		if contents[0][i] != contents[1][i] {
			t.Fatalf("message %d differs between runs", i)
		}
	}
}

func TestRunPipelineFailsAtStage(t *testing.T) {
	ctx := context.Background()
	gen := newScriptedGenerator()
	gen.failAt = domain.StageUXWriter
	svc, db := newTestService(t, gen, nil)

	run, _ := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "fitness app"})
	got, err := svc.RunPipeline(ctx, run.ID)
	if !errors.Is(err, domain.ErrPipelineFailure) {
		t.Fatalf("expected ErrPipelineFailure, got %v", err)
	}
	if got.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}

	stored, err := db.GetRun(ctx, run.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.Status != domain.RunStatusFailed || len(stored.Messages) != 2 {
		t.Fatalf("expected failed run with 2 messages, got %s with %d", stored.Status, len(stored.Messages))
	}
	if _, err := db.ReadArtifact(ctx, run.ID, domain.ArtifactPRDMarkdown); !errors.Is(err, domain.ErrArtifactMissing) {
		t.Fatalf("expected no PRD, got %v", err)
	}

	events, err := db.GetEvents(ctx, run.ID, 0, []string{string(domain.EventTypeRunFailed)}, 0)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected one run_failed event, got %d (%v)", len(events), err)
	}
	var payload domain.RunFailedPayload
	_ = json.Unmarshal(events[0].Payload, &payload)
	if payload.Stage != domain.StageUXWriter || payload.Code != "stage_error" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestRunPipelineRejectsFinishedRun(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, llm.NewDeterministic(), nil)

	run, _ := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "fitness app"})
	if _, err := svc.RunPipeline(ctx, run.ID); err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if _, err := svc.RunPipeline(ctx, run.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.RunPipeline(ctx, "run_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunPipelineCancelled(t *testing.T) {
	svc, db := newTestService(t, llm.NewDeterministic(), nil)
	run, _ := svc.CreateRun(context.Background(), domain.CreateRunRequest{Idea: "fitness app"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.RunPipeline(ctx, run.ID); err == nil {
		t.Fatalf("expected error for cancelled context")
	}

	stored, _ := db.GetRun(context.Background(), run.ID)
	if stored.Status != domain.RunStatusFailed {
		t.Fatalf("expected failed, got %s", stored.Status)
	}
}

func TestRunPipelineMockupOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "valid JSON is re-indented in model order",
			output: `{"screens":[],"product_name":"Demo"}`,
			want:   "{\n  \"screens\": [],\n  \"product_name\": \"Demo\"\n}",
		},
		{
			name:   "invalid JSON is stored verbatim",
			output: "Here are some screens: dashboard, settings",
			want:   "Here are some screens: dashboard, settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			gen := newScriptedGenerator()
			gen.override[domain.StageMockupDesigner] = tt.output
			svc, db := newTestService(t, gen, nil)

			run, _ := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "fitness app"})
			done, err := svc.RunPipeline(ctx, run.ID)
			if err != nil {
				t.Fatalf("RunPipeline failed: %v", err)
			}
			if done.Status != domain.RunStatusCompleted {
				t.Fatalf("expected completed, got %s", done.Status)
			}
			got, err := db.ReadArtifact(ctx, run.ID, domain.ArtifactMockupJSON)
			if err != nil {
				t.Fatalf("ReadArtifact failed: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRunPipelineRenderFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, llm.NewDeterministic(), failingPublisher{})

	run, _ := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "fitness app"})
	done, err := svc.RunPipeline(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if done.Status != domain.RunStatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if !containsEvent(eventTypes(t, db, run.ID), domain.EventTypeRenderFailed) {
		t.Fatalf("expected render_failed event")
	}
}

func TestRunPipelinePassesUserAnswers(t *testing.T) {
	ctx := context.Background()
	gen := newScriptedGenerator()
	svc, _ := newTestService(t, gen, nil)

	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{
		Idea:        "fitness app",
		UserAnswers: map[string]string{"budget": "low"},
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if _, err := svc.RunPipeline(ctx, run.ID); err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}

	if !strings.Contains(gen.prompts[domain.StageArchitect], `{"budget":"low"}`) {
		t.Fatalf("architect prompt missing user answers:\n%s", gen.prompts[domain.StageArchitect])
	}
	if !strings.Contains(gen.prompts[domain.StageSynthesizer], "=== ARCHITECT (Step 2) ===") {
		t.Fatalf("synthesizer prompt missing transcript")
	}
}

func TestCreateRunRejected(t *testing.T) {
	svc, _ := newTestService(t, llm.NewDeterministic(), nil)

	for _, idea := range []string{"", "   ", strings.Repeat("x", 2001)} {
		_, err := svc.CreateRun(context.Background(), domain.CreateRunRequest{Idea: idea})
		if !errors.Is(err, domain.ErrIdeaRejected) || !IsRejected(err) {
			t.Fatalf("expected ErrIdeaRejected for %d chars, got %v", len(idea), err)
		}
	}
}

func TestStartPipelineRunsInBackground(t *testing.T) {
	svc, _ := newTestService(t, llm.NewDeterministic(), nil)

	run, err := svc.SubmitRun(context.Background(), domain.CreateRunRequest{Idea: "meditation app"})
	if err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}
	svc.Wait()

	got, err := svc.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != domain.RunStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestCreateBundle(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, llm.NewDeterministic(), failingPublisher{})

	run, _ := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "fitness app"})
	if _, err := svc.RunPipeline(ctx, run.ID); err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if err := db.SaveArtifact(ctx, run.ID, domain.ArtifactPRDPDF, document.Placeholder("# PRD")); err != nil {
		t.Fatalf("SaveArtifact failed: %v", err)
	}

	// Bundling twice must not nest the first archive.
	for i := 0; i < 2; i++ {
		data, err := svc.CreateBundle(ctx, run.ID)
		if err != nil {
			t.Fatalf("CreateBundle failed: %v", err)
		}
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("bundle is not a zip: %v", err)
		}
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		sort.Strings(names)
		want := []string{"PRD.md", "PRD.txt", "conversation.json", "mockup.json"}
		if strings.Join(names, ",") != strings.Join(want, ",") {
			t.Fatalf("unexpected bundle entries: %v", names)
		}
	}

	stored, err := svc.ReadArtifact(ctx, run.ID, domain.ArtifactBundle)
	if err != nil || len(stored) == 0 {
		t.Fatalf("bundle not stored: %v", err)
	}
	if _, err := svc.CreateBundle(ctx, "run_missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRunEvents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, llm.NewDeterministic(), nil)

	run, _ := svc.CreateRun(ctx, domain.CreateRunRequest{Idea: "fitness app"})
	if _, err := svc.RunPipeline(ctx, run.ID); err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}

	events, err := svc.GetRunEvents(ctx, run.ID, 0, []string{string(domain.EventTypeStageDone)}, 0)
	if err != nil {
		t.Fatalf("GetRunEvents failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 stage_done events, got %d", len(events))
	}
	var payload domain.StageDonePayload
	if err := json.Unmarshal(events[4].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Stage != domain.StageSynthesizer || payload.Step != 5 {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if _, err := svc.GetRunEvents(ctx, "run_missing", 0, nil, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
