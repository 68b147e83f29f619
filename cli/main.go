// Package main provides a command-line client that submits a product idea and
// follows the run until its PRD is ready.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shodexco/aiproductmanager/internal/domain"
)

// Client talks to the PRD pipeline HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateRun submits an idea and returns the accepted run.
func (c *Client) CreateRun(idea string, answers map[string]string) (*domain.CreateRunResponse, error) {
	body, err := json.Marshal(domain.CreateRunRequest{Idea: idea, UserAnswers: answers})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.http.Post(c.baseURL+"/v1/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	defer resp.Body.Close()

	var out domain.CreateRunResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(runID string) (*domain.Run, error) {
	resp, err := c.http.Get(c.baseURL + "/v1/runs/" + runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer resp.Body.Close()

	var run domain.Run
	if err := decode(resp, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetArtifact fetches a text artifact.
func (c *Client) GetArtifact(runID, artifactType string) (*domain.ArtifactResponse, error) {
	resp, err := c.http.Get(c.baseURL + "/v1/runs/" + runID + "/artifacts/" + artifactType)
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	defer resp.Body.Close()

	var out domain.ArtifactResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Follow streams the run's events to stdout until the terminal event.
func (c *Client) Follow(runID string, interrupt <-chan os.Signal) error {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/runs/" + runID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	events := make(chan domain.Event)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			var ev domain.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					errs <- err
				}
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-interrupt:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return fmt.Errorf("interrupted")
		case err := <-errs:
			return fmt.Errorf("read: %w", err)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			printEvent(ev)
		}
	}
}

// Poll waits until the run reaches a terminal status.
func (c *Client) Poll(runID string, interval time.Duration, interrupt <-chan os.Signal) (*domain.Run, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := domain.RunStatus("")
	for {
		run, err := c.GetRun(runID)
		if err != nil {
			return nil, err
		}
		if run.Status != last {
			fmt.Printf("status: %s (%d messages)\n", run.Status, len(run.Messages))
			last = run.Status
		}
		if run.Status.IsTerminal() {
			return run, nil
		}

		select {
		case <-interrupt:
			return nil, fmt.Errorf("interrupted")
		case <-ticker.C:
		}
	}
}

func decode(resp *http.Response, v interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func printEvent(ev domain.Event) {
	var payload map[string]interface{}
	_ = json.Unmarshal(ev.Payload, &payload)
	ts := time.UnixMilli(ev.Ts).Format("15:04:05.000")

	switch ev.Type {
	case domain.EventTypeStageStarted:
		fmt.Printf("[%s] step %v: %v started\n", ts, payload["step"], payload["stage"])
	case domain.EventTypeStageDone:
		fmt.Printf("[%s] step %v: %v done in %vms\n", ts, payload["step"], payload["stage"], payload["latency_ms"])
	case domain.EventTypeArtifactSaved:
		fmt.Printf("[%s] saved %v\n", ts, payload["artifact_type"])
	default:
		fmt.Printf("[%s] %s %s\n", ts, ev.Type, string(ev.Payload))
	}
}

// answerFlags collects repeated -answer key=value flags.
type answerFlags map[string]string

func (a answerFlags) String() string {
	return fmt.Sprint(map[string]string(a))
}

func (a answerFlags) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	a[strings.TrimSpace(key)] = strings.TrimSpace(value)
	return nil
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "API server address")
	idea := flag.String("idea", "", "Product idea to turn into a PRD")
	follow := flag.Bool("follow", true, "Stream run events over WebSocket instead of polling")
	interval := flag.Duration("interval", time.Second, "Polling interval when -follow=false")
	printPRD := flag.Bool("print", true, "Print the PRD markdown when the run completes")
	answers := answerFlags{}
	flag.Var(answers, "answer", "Answer to a clarifying question as key=value (repeatable)")
	flag.Parse()

	log.SetFlags(log.Ltime)

	text := strings.TrimSpace(*idea)
	if text == "" {
		text = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: cli -idea \"a fitness app for busy parents\"")
		os.Exit(2)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	client := NewClient(*addr)
	created, err := client.CreateRun(text, answers)
	if err != nil {
		log.Fatalf("Failed to create run: %v", err)
	}
	fmt.Printf("Run %s accepted (%s)\n", created.RunID, created.Status)

	if *follow {
		if err := client.Follow(created.RunID, interrupt); err != nil {
			log.Printf("Stream ended: %v; falling back to polling", err)
		}
	}
	run, err := client.Poll(created.RunID, *interval, interrupt)
	if err != nil {
		log.Fatalf("Failed to wait for run: %v", err)
	}

	if run.Status != domain.RunStatusCompleted {
		log.Fatalf("Run %s finished with status %s", run.ID, run.Status)
	}

	fmt.Println("\nArtifacts:")
	for _, t := range domain.ArtifactTypes {
		if loc := run.Artifacts[t]; loc != "" {
			fmt.Printf("  %-13s %s\n", t, loc)
		}
	}
	fmt.Printf("  download      %s/v1/runs/%s/download\n", strings.TrimRight(*addr, "/"), run.ID)

	if *printPRD {
		prd, err := client.GetArtifact(run.ID, domain.ArtifactPRDMarkdown)
		if err != nil {
			log.Fatalf("Failed to fetch PRD: %v", err)
		}
		fmt.Printf("\n%s\n", prd.Content)
	}
}
