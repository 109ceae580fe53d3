package handlers

import (
	"context"

	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/serialization"
	"github.com/ai-judge/ai-judge/pkg/api"
)

// HandleEvaluate handles POST /evaluate
func (h *Handlers) HandleEvaluate(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	logging.LogRequestStarted(ctx)

	bodyBytes, err := req.BodyAsBytes()
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	task := &api.EvaluateRequest{}
	if err = serialization.Unmarshal(h.validate, ctx, bodyBytes, task); err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	var evaluation *api.Evaluation
	err = h.withSpan(ctx, func(spanCtx context.Context) error {
		var err error
		evaluation, err = h.orchestrator.Evaluate(spanCtx, *task)
		return err
	}, "evaluate", "submission_id", task.SubmissionID, "template_id", task.TemplateID, "judge_id", task.JudgeID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	w.WriteJSON(api.EvaluateResponse{Success: true, Evaluation: evaluation}, 200)
}

// HandleRunEvaluations handles POST /run-evaluations. The response is sent
// once every task of the run has settled.
func (h *Handlers) HandleRunEvaluations(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	logging.LogRequestStarted(ctx)

	bodyBytes, err := req.BodyAsBytes()
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	request := &api.RunEvaluationsRequest{}
	if err = serialization.Unmarshal(h.validate, ctx, bodyBytes, request); err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	var response *api.RunEvaluationsResponse
	err = h.withSpan(ctx, func(spanCtx context.Context) error {
		var err error
		response, err = h.orchestrator.RunEvaluations(spanCtx, request.QueueID, request.Concurrency)
		return err
	}, "run-evaluations", "queue_id", request.QueueID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	w.WriteJSON(response, 200)
}
