package service

import (
	"context"
	"sync"

	"github.com/Shodexco/aiproductmanager/internal/adapter/llm"
	"github.com/Shodexco/aiproductmanager/internal/config"
	"github.com/Shodexco/aiproductmanager/internal/repository"
	"github.com/Shodexco/aiproductmanager/policy"
)

// Publisher renders the final PRD into its document artifact.
type Publisher interface {
	Publish(ctx context.Context, runID, markdown string) error
}

type Service struct {
	store        store.Store
	generator    llm.Generator
	publisher    Publisher
	config       *config.Config
	policyEngine *policy.Engine

	// active holds the IDs of runs whose pipeline executes in this process.
	active sync.Map
	wg     sync.WaitGroup
}

func New(store store.Store, generator llm.Generator, publisher Publisher, cfg *config.Config, policyEngine *policy.Engine) *Service {
	return &Service{
		store:        store,
		generator:    generator,
		publisher:    publisher,
		config:       cfg,
		policyEngine: policyEngine,
	}
}

// Wait blocks until every pipeline started with StartPipeline has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}
