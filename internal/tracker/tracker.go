// Package tracker owns the lifecycle and counters of a run.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/common"
	"github.com/ai-judge/ai-judge/internal/metrics"
	"github.com/ai-judge/ai-judge/pkg/api"
)

// ErrRunFull is returned when a completion is recorded for a run whose
// counters already add up to the planned count.
var ErrRunFull = errors.New("run counters already reached the planned count")

type Tracker struct {
	storage abstractions.Storage
	logger  *slog.Logger
}

func New(storage abstractions.Storage, logger *slog.Logger) *Tracker {
	return &Tracker{storage: storage, logger: logger}
}

// Create stores a new running run for queueID with planned tasks.
func (t *Tracker) Create(ctx context.Context, queueID string, planned int) (*api.Run, error) {
	run := &api.Run{
		ID:           common.GUID(),
		QueueID:      queueID,
		Status:       api.RunStatusRunning,
		PlannedCount: planned,
		CreatedAt:    time.Now().UTC(),
	}
	if err := t.storage.WithContext(ctx).WithLogger(t.logger).CreateRun(run); err != nil {
		return nil, err
	}
	t.logger.Info("Run created", "run_id", run.ID, "queue_id", queueID, "planned", planned)
	return run, nil
}

// RecordCompletion counts one settled task of the run, as completed when it
// succeeded and as failed otherwise.
func (t *Tracker) RecordCompletion(ctx context.Context, runID string, succeeded bool) error {
	updated, err := t.storage.WithContext(ctx).WithLogger(t.logger).IncrementRunCounter(runID, succeeded)
	if err != nil {
		return err
	}
	if !updated {
		return ErrRunFull
	}
	return nil
}

// Finalize moves the run to completed when every planned task was counted,
// and to failed otherwise. Finalizing a terminal run returns it unchanged.
func (t *Tracker) Finalize(ctx context.Context, runID string) (*api.Run, error) {
	run, finalized, err := t.storage.WithContext(ctx).WithLogger(t.logger).FinalizeRun(runID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if finalized {
		metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
		t.logger.Info("Run finalized", "run_id", run.ID, "status", run.Status, "completed", run.CompletedCount, "failed", run.FailedCount, "planned", run.PlannedCount)
	}
	return run, nil
}
