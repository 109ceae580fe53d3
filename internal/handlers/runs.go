package handlers

import (
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/pkg/api"
)

var (
	runFilterParameters = map[string]string{
		constants.QUERY_PARAMETER_QUEUE_ID: "queue_id",
		constants.QUERY_PARAMETER_STATUS:   "status",
	}
	evaluationFilterParameters = map[string]string{
		"judgeId":      "judge_id",
		"submissionId": "submission_id",
		"templateId":   "template_id",
		"verdict":      "verdict",
	}
)

// HandleListRuns handles GET /runs
func (h *Handlers) HandleListRuns(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)

	logging.LogRequestStarted(ctx)

	filter, err := CommonListFilters(req, runFilterParameters)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	if status, _ := filter.Params["status"].(string); status != "" {
		if _, err := api.GetRunStatus(status); err != nil {
			w.Error(serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", constants.QUERY_PARAMETER_STATUS, "Type", "run status", "Value", status), ctx.RequestID)
			return
		}
	}

	res, err := storage.GetRuns(*filter)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	page, err := CreatePage(res.TotalStored, filter.Offset, filter.Limit, ctx, req)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(api.RunList{
		Page:  *page,
		Items: res.Items,
	}, 200)
}

// HandleGetRun handles GET /runs/{id}
func (h *Handlers) HandleGetRun(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)
	logging.LogRequestStarted(ctx)

	runID, err := pathParameter(req, constants.PATH_PARAMETER_RUN_ID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	run, err := storage.GetRun(runID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(run, 200)
}

// HandleListRunEvaluations handles GET /runs/{id}/evaluations
func (h *Handlers) HandleListRunEvaluations(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)
	logging.LogRequestStarted(ctx)

	runID, err := pathParameter(req, constants.PATH_PARAMETER_RUN_ID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	filter, err := CommonListFilters(req, evaluationFilterParameters)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	if verdict, _ := filter.Params["verdict"].(string); verdict != "" {
		v, err := api.GetVerdict(verdict)
		if err != nil {
			w.Error(serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", "verdict", "Type", "verdict", "Value", verdict), ctx.RequestID)
			return
		}
		filter.Params["verdict"] = string(v)
	}

	// a missing run is a 404, not an empty list
	if _, err := storage.GetRun(runID); err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	res, err := storage.GetEvaluations(runID, *filter)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	page, err := CreatePage(res.TotalStored, filter.Offset, filter.Limit, ctx, req)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(api.EvaluationList{
		Page:  *page,
		Items: res.Items,
	}, 200)
}

// HandleCancelRun handles POST /runs/{id}/cancel
func (h *Handlers) HandleCancelRun(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	logging.LogRequestStarted(ctx)

	runID, err := pathParameter(req, constants.PATH_PARAMETER_RUN_ID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	if err := h.orchestrator.CancelRun(runID); err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(map[string]any{"success": true, "runId": runID}, 202)
}
