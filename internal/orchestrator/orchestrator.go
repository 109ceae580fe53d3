// Package orchestrator runs the evaluations of a queue: it plans the tasks,
// executes them through the limiter, stores every evaluation and finalizes
// the run with its summary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/export"
	"github.com/ai-judge/ai-judge/internal/invoker"
	"github.com/ai-judge/ai-judge/internal/limiter"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/otel"
	"github.com/ai-judge/ai-judge/internal/planner"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/tracker"
	"github.com/ai-judge/ai-judge/pkg/api"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const component = "orchestrator"

type Orchestrator struct {
	storage       abstractions.Storage
	invoker       *invoker.Invoker
	planner       *planner.Planner
	tracker       *tracker.Tracker
	serviceConfig *config.Config
	config        *config.OrchestratorConfig
	exporter      export.Exporter
	logger        *slog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func New(storage abstractions.Storage, invoker *invoker.Invoker, serviceConfig *config.Config, logger *slog.Logger) *Orchestrator {
	cfg := config.DefaultOrchestratorConfig()
	if serviceConfig != nil && serviceConfig.Orchestrator != nil {
		cfg = serviceConfig.Orchestrator
	}
	return &Orchestrator{
		storage:       storage,
		invoker:       invoker,
		planner:       planner.New(storage, logger),
		tracker:       tracker.New(storage, logger),
		serviceConfig: serviceConfig,
		config:        cfg,
		logger:        logger,
		active:        map[string]context.CancelFunc{},
	}
}

// WithExporter sets the exporter that receives every finalized run.
func (o *Orchestrator) WithExporter(exporter export.Exporter) *Orchestrator {
	o.exporter = exporter
	return o
}

// RunEvaluations evaluates every planned task of the queue with at most
// concurrency tasks in flight. The run outlives ctx, it only stops early
// when it is cancelled with CancelRun or CancelAll.
func (o *Orchestrator) RunEvaluations(ctx context.Context, queueID string, concurrency *int) (*api.RunEvaluationsResponse, error) {
	logger := o.logger.With("queue_id", queueID)

	var tasks []api.EvaluationTask
	err := otel.WithSpan(ctx, o.serviceConfig, logger, component, "plan", map[string]string{"queue_id": queueID}, func(spanCtx context.Context) error {
		var err error
		tasks, err = o.planner.Plan(spanCtx, queueID)
		return err
	})
	if errors.Is(err, planner.ErrEmptyPlan) {
		return &api.RunEvaluationsResponse{Success: true, Summary: emptySummary()}, nil
	}
	if err != nil {
		return nil, err
	}

	run, err := o.tracker.Create(ctx, queueID, len(tasks))
	if err != nil {
		return nil, err
	}
	logger = logger.With("run_id", run.ID)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.register(run.ID, cancel)
	defer o.unregister(run.ID)

	n := o.config.ClampConcurrency(concurrency)
	logger.Info("Run started", "tasks", len(tasks), "concurrency", n)

	pool := limiter.New[*api.Evaluation](runCtx, n)
	defer pool.Close()

	judges := newJudgeCache(o.storage, logger)
	summary := newAggregator(o.config.MaxErrorMessages)

	futures := make([]*limiter.Future[*api.Evaluation], len(tasks))
	for i, task := range tasks {
		futures[i] = pool.Submit(func(taskCtx context.Context) (*api.Evaluation, error) {
			return o.execute(taskCtx, logger, run.ID, task, judges, summary), nil
		})
	}
	if err := pool.Drain(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	for i, future := range futures {
		if _, err := future.Await(context.Background()); err != nil {
			if errors.Is(err, limiter.ErrCancelled) {
				summary.addUnsettled(tasks[i], err.Error())
				continue
			}
			logger.Error("Evaluation task failed", "task", tasks[i].String(), "error", err.Error())
			summary.addUnsettled(tasks[i], err.Error())
		}
	}

	finalCtx := context.WithoutCancel(ctx)
	var finished *api.Run
	err = otel.WithSpan(finalCtx, o.serviceConfig, logger, component, "finalize", map[string]string{"run_id": run.ID}, func(spanCtx context.Context) error {
		var err error
		finished, err = o.tracker.Finalize(spanCtx, run.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := summary.summary(judges.names())
	logger.Info("Run finished", "status", finished.Status, "successful", result.SuccessfulEvaluations, "failed", result.FailedEvaluations, "duration_ms", result.TotalDuration)

	if o.exporter != nil {
		if err := o.exporter.Export(finalCtx, finished, result); err != nil {
			logger.Error("Failed to export run", "error", err.Error())
		}
	}

	return &api.RunEvaluationsResponse{Success: true, Run: finished, Summary: result}, nil
}

// execute runs one task of the run and stores its evaluation. It always
// returns the evaluation, failures are recorded on it.
func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, runID string, task api.EvaluationTask, judges *judgeCache, summary *aggregator) *api.Evaluation {
	var evaluation *api.Evaluation
	inputs, err := o.load(ctx, task, func(judgeID string) (*api.Judge, error) {
		return judges.get(ctx, judgeID)
	})
	switch {
	case err != nil:
		evaluation = invoker.Failed(task, inputs.judge, err.Error())
	case !inputs.judge.Active:
		evaluation = invoker.Failed(task, inputs.judge, serviceerrors.NewServiceError(messages.JudgeInactive, "JudgeId", task.JudgeID).Error())
	default:
		evaluation = o.invoker.Invoke(ctx, task, inputs.judge, inputs.question, inputs.answer)
	}
	evaluation.RunID = runID

	// a cancelled run must not lose an evaluation that already settled
	writeCtx := context.WithoutCancel(ctx)
	storeErr := ""
	inserted, err := o.storage.WithContext(writeCtx).WithLogger(logger).CreateEvaluation(evaluation)
	switch {
	case err != nil:
		storeErr = fmt.Sprintf("failed to store evaluation %s: %s", task.String(), err.Error())
		logger.Error("Failed to store evaluation", "task", task.String(), "error", err.Error())
	case inserted:
		if err := o.tracker.RecordCompletion(writeCtx, runID, evaluation.Succeeded()); err != nil {
			logger.Warn("Failed to count evaluation", "task", task.String(), "error", err.Error())
		}
	default:
		logger.Warn("Evaluation already stored", "task", task.String())
	}

	summary.add(evaluation, storeErr)
	return evaluation
}

type inputs struct {
	judge    *api.Judge
	question *api.Question
	answer   *api.Answer
}

// load fetches the judge, question and answer of task concurrently.
func (o *Orchestrator) load(ctx context.Context, task api.EvaluationTask, getJudge func(string) (*api.Judge, error)) (inputs, error) {
	store := o.storage.WithContext(ctx).WithLogger(o.logger)
	var in inputs
	var judgeErr, questionErr, answerErr error

	group := errgroup.Group{}
	group.Go(func() error {
		in.judge, judgeErr = getJudge(task.JudgeID)
		return judgeErr
	})
	group.Go(func() error {
		in.question, questionErr = store.GetQuestion(task.SubmissionID, task.TemplateID)
		return questionErr
	})
	group.Go(func() error {
		in.answer, answerErr = store.GetAnswer(task.SubmissionID, task.TemplateID)
		return answerErr
	})
	_ = group.Wait()

	// report the first failed lookup in a stable order
	return in, firstError(judgeErr, questionErr, answerErr)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs a single task outside of any run. The evaluation is not
// stored. A missing judge, question or answer is returned as an error.
func (o *Orchestrator) Evaluate(ctx context.Context, task api.EvaluationTask) (*api.Evaluation, error) {
	store := o.storage.WithContext(ctx).WithLogger(o.logger)
	in, err := o.load(ctx, task, store.GetJudge)
	if err != nil {
		return nil, err
	}
	var evaluation *api.Evaluation
	err = otel.WithSpan(ctx, o.serviceConfig, o.logger, component, "evaluate", map[string]string{"task": task.String(), "provider": in.judge.Provider}, func(spanCtx context.Context) error {
		evaluation = o.invoker.Invoke(spanCtx, task, in.judge, in.question, in.answer)
		return nil
	})
	return evaluation, err
}

// CancelRun stops the admission of the remaining tasks of an active run.
func (o *Orchestrator) CancelRun(runID string) error {
	o.mu.Lock()
	cancel, ok := o.active[runID]
	o.mu.Unlock()
	if !ok {
		return serviceerrors.NewServiceError(messages.RunNotActive, "RunId", runID)
	}
	o.logger.Info("Cancelling run", "run_id", runID)
	cancel()
	return nil
}

// CancelAll cancels every active run, it is used on shutdown.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for runID, cancel := range o.active {
		o.logger.Info("Cancelling run", "run_id", runID)
		cancel()
	}
}

// ActiveRuns returns the number of runs in progress.
func (o *Orchestrator) ActiveRuns() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

func (o *Orchestrator) register(runID string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[runID] = cancel
}

func (o *Orchestrator) unregister(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.active[runID]; ok {
		cancel()
		delete(o.active, runID)
	}
}

// judgeCache resolves each judge of a run once. Concurrent lookups of the
// same judge share one storage call, failed lookups are not cached.
type judgeCache struct {
	storage abstractions.Storage
	logger  *slog.Logger
	group   singleflight.Group

	mu     sync.Mutex
	judges map[string]*api.Judge
}

func newJudgeCache(storage abstractions.Storage, logger *slog.Logger) *judgeCache {
	return &judgeCache{storage: storage, logger: logger, judges: map[string]*api.Judge{}}
}

func (c *judgeCache) get(ctx context.Context, judgeID string) (*api.Judge, error) {
	c.mu.Lock()
	judge, ok := c.judges[judgeID]
	c.mu.Unlock()
	if ok {
		return judge, nil
	}

	value, err, _ := c.group.Do(judgeID, func() (any, error) {
		judge, err := c.storage.WithContext(ctx).WithLogger(c.logger).GetJudge(judgeID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.judges[judgeID] = judge
		c.mu.Unlock()
		return judge, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*api.Judge), nil
}

func (c *judgeCache) names() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make(map[string]string, len(c.judges))
	for id, judge := range c.judges {
		names[id] = judge.Name
	}
	return names
}
