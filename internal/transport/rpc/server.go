// Package rpc exposes an internal JSON-RPC interface for operators and batch tooling.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/Shodexco/aiproductmanager/internal/domain"
	"github.com/Shodexco/aiproductmanager/internal/service"
)

// Server exposes internal RPC endpoints.
type Server struct {
	mu        sync.Mutex
	listener  net.Listener
	closed    bool
	rpcServer *rpc.Server
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the pipeline service.
func NewServer(svc *service.Service) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName("Pipeline", handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts RPC connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			log.Printf("RPC accept error: %v", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the Pipeline RPC methods.
type Handler struct {
	service *service.Service
}

// RunRequest identifies a run.
type RunRequest struct {
	RunID string `json:"run_id"`
}

// RunResult summarizes a run after a synchronous execution.
type RunResult struct {
	RunID     string            `json:"run_id"`
	Status    domain.RunStatus  `json:"status"`
	Messages  int               `json:"messages"`
	Artifacts map[string]string `json:"artifacts"`
	Error     string            `json:"error,omitempty"`
}

// ReapRequest takes no arguments.
type ReapRequest struct{}

// ReapResult reports how many stale runs were failed.
type ReapResult struct {
	Reaped int `json:"reaped"`
}

// SubmitRun creates a run and starts its pipeline in the background.
func (h *Handler) SubmitRun(req *domain.CreateRunRequest, resp *domain.CreateRunResponse) error {
	if req == nil {
		return errors.New("create run request is required")
	}

	run, err := h.service.SubmitRun(context.Background(), *req)
	if err != nil {
		return err
	}
	if resp != nil {
		resp.RunID = run.ID
		resp.Status = run.Status
		resp.Artifacts = run.Artifacts
	}
	return nil
}

// ExecuteRun creates a run and executes the pipeline before returning.
// A pipeline failure is reported in the result, not as an RPC error.
func (h *Handler) ExecuteRun(req *domain.CreateRunRequest, resp *RunResult) error {
	if req == nil {
		return errors.New("create run request is required")
	}

	ctx := context.Background()
	created, err := h.service.CreateRun(ctx, *req)
	if err != nil {
		return err
	}

	run, err := h.service.RunPipeline(ctx, created.ID)
	if run == nil {
		return err
	}
	if resp != nil {
		*resp = summarize(run)
		if err != nil {
			resp.Error = err.Error()
		}
	}
	return nil
}

// GetRun returns a run summary.
func (h *Handler) GetRun(req *RunRequest, resp *RunResult) error {
	if req == nil || req.RunID == "" {
		return errors.New("run_id is required")
	}

	run, err := h.service.GetRun(context.Background(), req.RunID)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = summarize(run)
	}
	return nil
}

// ReapStaleRuns runs one stale-run sweep immediately.
func (h *Handler) ReapStaleRuns(req *ReapRequest, resp *ReapResult) error {
	reaped, err := h.service.ReapStaleRuns(context.Background())
	if err != nil {
		return err
	}
	if resp != nil {
		resp.Reaped = reaped
	}
	return nil
}

func summarize(run *domain.Run) RunResult {
	return RunResult{
		RunID:     run.ID,
		Status:    run.Status,
		Messages:  len(run.Messages),
		Artifacts: run.Artifacts,
	}
}
