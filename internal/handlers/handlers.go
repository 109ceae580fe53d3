package handlers

import (
	"context"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/pkg/api"
	"github.com/go-playground/validator/v10"
)

// Orchestrator is the part of the orchestrator used by the handlers.
type Orchestrator interface {
	RunEvaluations(ctx context.Context, queueID string, concurrency *int) (*api.RunEvaluationsResponse, error)
	Evaluate(ctx context.Context, task api.EvaluationTask) (*api.Evaluation, error)
	CancelRun(runID string) error
	ActiveRuns() int
}

type Handlers struct {
	storage       abstractions.Storage
	validate      *validator.Validate
	orchestrator  Orchestrator
	serviceConfig *config.Config
}

func New(storage abstractions.Storage, validate *validator.Validate, orchestrator Orchestrator, serviceConfig *config.Config) *Handlers {
	return &Handlers{
		storage:       storage,
		validate:      validate,
		orchestrator:  orchestrator,
		serviceConfig: serviceConfig,
	}
}
