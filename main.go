package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shodexco/aiproductmanager/internal/adapter/artifact"
	"github.com/Shodexco/aiproductmanager/internal/adapter/document"
	"github.com/Shodexco/aiproductmanager/internal/adapter/llm"
	"github.com/Shodexco/aiproductmanager/internal/config"
	"github.com/Shodexco/aiproductmanager/internal/repository"
	"github.com/Shodexco/aiproductmanager/internal/service"
	handler "github.com/Shodexco/aiproductmanager/internal/transport/http"
	"github.com/Shodexco/aiproductmanager/internal/transport/rpc"
	"github.com/Shodexco/aiproductmanager/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting AI product manager...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Artifact backend: %s", cfg.ArtifactBackend)

	ctx := context.Background()

	// Initialize artifact store
	artifacts, err := newArtifactStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize artifact store: %v", err)
	}

	// Initialize run store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL, artifacts, cfg.RunCacheSize)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize LLM backend
	backend := llm.NewBackend(ctx, llm.Options{
		Mode:          cfg.Mode,
		Provider:      cfg.LLMProvider,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		Seed:          cfg.AgentSeed,
		Timeout:       cfg.LLMTimeout,
	})

	// Initialize document sink
	sink := document.NewSink(document.NewPDFRenderer(), db)

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, backend, sink, cfg, policyEngine)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go svc.RunStaleRunMonitor(monitorCtx)

	server := handler.NewServer(svc)
	server.Debug = cfg.LogLevel == "debug"

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	var rpcServer *rpc.Server
	if cfg.RPCPort > 0 {
		rpcServer, err = rpc.NewServer(svc)
		if err != nil {
			log.Fatalf("Failed to initialize RPC server: %v", err)
		}
		go func() {
			addr := fmt.Sprintf(":%d", cfg.RPCPort)
			if err := rpcServer.Start(addr); err != nil {
				log.Fatalf("Failed to start RPC server: %v", err)
			}
		}()
		log.Printf("Internal RPC started on port %d", cfg.RPCPort)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
	if rpcServer != nil {
		if err := rpcServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shutdown RPC server gracefully: %v", err)
		}
	}
	stopMonitor()

	// In-flight pipelines are left to finish; anything still running after a crash is reaped later.
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Printf("WARN: shutdown timed out with pipelines still running")
	}

	log.Println("Stopped")
}

func newArtifactStore(cfg *config.Config) (artifact.Store, error) {
	switch cfg.ArtifactBackend {
	case "s3":
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	case "", "fs":
		fs, err := artifact.NewFSStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}
