// Package invoker runs one evaluation task against the judge's LLM provider.
// It never returns an error: every failure becomes an inconclusive
// evaluation carrying the error text.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ai-judge/ai-judge/internal/common"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/llm"
	"github.com/ai-judge/ai-judge/internal/metrics"
	"github.com/ai-judge/ai-judge/internal/parser"
	"github.com/ai-judge/ai-judge/internal/retry"
	"github.com/ai-judge/ai-judge/pkg/api"
)

const parseFailedLabel = "failed"

// TimeoutError is returned when a provider call exceeds the configured timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("LLM call timed out after %s", e.Timeout)
}

type Invoker struct {
	providers *llm.Registry
	config    *config.OrchestratorConfig
	logger    *slog.Logger
}

func New(providers *llm.Registry, cfg *config.OrchestratorConfig, logger *slog.Logger) *Invoker {
	if cfg == nil {
		cfg = config.DefaultOrchestratorConfig()
	}
	return &Invoker{providers: providers, config: cfg, logger: logger}
}

// Invoke evaluates the answer to question with judge. The provider is called
// again, up to the configured number of attempts, while its response can not
// be parsed. Provider errors are only retried when transient and retries are
// enabled, timeouts never are.
func (i *Invoker) Invoke(ctx context.Context, task api.EvaluationTask, judge *api.Judge, question *api.Question, answer *api.Answer) *api.Evaluation {
	evaluation := &api.Evaluation{
		ID:           common.GUID(),
		SubmissionID: task.SubmissionID,
		TemplateID:   task.TemplateID,
		JudgeID:      task.JudgeID,
		Verdict:      api.VerdictInconclusive,
		Provider:     judge.Provider,
		Model:        judge.Model,
	}
	logger := i.logger.With("task", task.String(), "provider", judge.Provider, "model", judge.Model)

	provider, err := i.providers.Get(judge.Provider)
	if err != nil {
		return i.fail(logger, evaluation, err.Error())
	}

	req := llm.Request{
		Model:        judge.Model,
		SystemPrompt: BuildSystemPrompt(judge.SystemPrompt),
		UserPrompt:   BuildUserPrompt(question, answer),
		MaxTokens:    i.config.MaxTokens,
		Temperature:  i.config.Temperature,
	}

	attempts := max(i.config.ParseAttempts, 1)
	start := time.Now()
	var failure parser.Failure
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := i.complete(ctx, logger, provider, req)
		latency := time.Since(start).Milliseconds()
		evaluation.LatencyMs = &latency
		if err != nil {
			return i.fail(logger, evaluation, err.Error())
		}

		switch result := parser.Parse(text).(type) {
		case parser.Success:
			metrics.ParseStrategyTotal.WithLabelValues(result.Strategy.String()).Inc()
			evaluation.Verdict = result.Verdict
			evaluation.Reasoning = truncate(result.Reasoning, i.config.ReasoningMaxLength)
			evaluation.ParseStrategy = result.Strategy.String()
			return i.finish(evaluation)
		case parser.Failure:
			failure = result
			logger.Debug("Failed to parse LLM response", "attempt", attempt, "reason", result.Reason, "strategies", len(result.Attempts))
		}
	}

	metrics.ParseStrategyTotal.WithLabelValues(parseFailedLabel).Inc()
	return i.fail(logger, evaluation, fmt.Sprintf("failed to parse LLM response after %d attempts: %s", attempts, failure.Reason))
}

// complete makes one provider call under the configured timeout, retrying
// transient errors when enabled. The timeout is enforced even when the
// provider ignores its context.
func (i *Invoker) complete(ctx context.Context, logger *slog.Logger, provider llm.Provider, req llm.Request) (string, error) {
	retryConfig := retry.NewRetryConfig(i.config.ProviderRetries, i.config.ProviderBackoff)
	return retry.RetryWithBackoff(ctx, logger, retryConfig, "llm "+provider.Name(), llm.IsTransient, func() (string, error) {
		return i.call(ctx, provider, req)
	})
}

type completion struct {
	text string
	err  error
}

func (i *Invoker) call(ctx context.Context, provider llm.Provider, req llm.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, i.config.LLMTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan completion, 1)
	go func() {
		text, err := provider.Complete(callCtx, req)
		done <- completion{text: text, err: err}
	}()

	var result completion
	select {
	case result = <-done:
	case <-callCtx.Done():
		result = completion{err: callCtx.Err()}
	}

	outcome := metrics.OutcomeSuccess
	if result.err != nil {
		outcome = metrics.OutcomeError
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			outcome = metrics.OutcomeTimeout
			result.err = &TimeoutError{Timeout: i.config.LLMTimeout}
		}
	}
	metrics.LLMRequestDuration.WithLabelValues(provider.Name(), outcome).Observe(time.Since(start).Seconds())
	return result.text, result.err
}

func (i *Invoker) fail(logger *slog.Logger, evaluation *api.Evaluation, message string) *api.Evaluation {
	logger.Warn("Evaluation failed", "error", message)
	evaluation.Verdict = api.VerdictInconclusive
	evaluation.Reasoning = ""
	evaluation.Error = message
	return i.finish(evaluation)
}

func (i *Invoker) finish(evaluation *api.Evaluation) *api.Evaluation {
	evaluation.CreatedAt = time.Now().UTC()
	metrics.EvaluationsTotal.WithLabelValues(evaluation.Verdict.String()).Inc()
	return evaluation
}

// Failed builds the inconclusive evaluation for a task that could not be
// invoked at all, such as a judge or question lookup failure.
func Failed(task api.EvaluationTask, judge *api.Judge, message string) *api.Evaluation {
	evaluation := &api.Evaluation{
		ID:           common.GUID(),
		SubmissionID: task.SubmissionID,
		TemplateID:   task.TemplateID,
		JudgeID:      task.JudgeID,
		Verdict:      api.VerdictInconclusive,
		Error:        message,
		CreatedAt:    time.Now().UTC(),
	}
	if judge != nil {
		evaluation.Provider = judge.Provider
		evaluation.Model = judge.Model
	}
	metrics.EvaluationsTotal.WithLabelValues(evaluation.Verdict.String()).Inc()
	return evaluation
}
