package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/ai-judge/ai-judge/internal/common"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serialization"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/pkg/api"
)

var judgeSchema = serialization.MustCompileSchema(`{
	"type": "object",
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"systemPrompt": {"type": "string"},
		"provider": {"type": "string", "minLength": 1},
		"model": {"type": "string", "minLength": 1},
		"active": {"type": "boolean"}
	},
	"required": ["name", "provider", "model"],
	"additionalProperties": false
}`)

var judgeFilterParameters = map[string]string{
	"provider": "provider",
	"active":   "active",
}

// createJudgeRequest is the body of POST /judges, a judge is active unless
// the body says otherwise.
type createJudgeRequest struct {
	ID string `json:"id,omitempty"`
	api.JudgeConfig
	Active *bool `json:"active,omitempty"`
}

// HandleListJudges handles GET /judges
func (h *Handlers) HandleListJudges(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)

	logging.LogRequestStarted(ctx)

	filter, err := CommonListFilters(req, judgeFilterParameters)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	if active, _ := filter.Params["active"].(string); active != "" {
		value, err := strconv.ParseBool(active)
		if err != nil {
			w.Error(serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", "active", "Type", "boolean", "Value", active), ctx.RequestID)
			return
		}
		filter.Params["active"] = value
	}

	res, err := storage.GetJudges(*filter)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	page, err := CreatePage(res.TotalStored, filter.Offset, filter.Limit, ctx, req)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(api.JudgeList{
		Page:  *page,
		Items: res.Items,
	}, 200)
}

// HandleGetJudge handles GET /judges/{id}
func (h *Handlers) HandleGetJudge(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)
	logging.LogRequestStarted(ctx)

	judgeID, err := pathParameter(req, constants.PATH_PARAMETER_JUDGE_ID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	judge, err := storage.GetJudge(judgeID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(judge, 200)
}

// HandleCreateJudge handles POST /judges
func (h *Handlers) HandleCreateJudge(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)

	logging.LogRequestStarted(ctx)

	bodyBytes, err := req.BodyAsBytes()
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	request := &createJudgeRequest{}
	if err = serialization.UnmarshalWithSchema(h.validate, ctx, judgeSchema, bodyBytes, request); err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	judge := &api.Judge{
		ID:          request.ID,
		JudgeConfig: request.JudgeConfig,
	}
	if judge.ID == "" {
		judge.ID = common.GUID()
	}
	judge.Active = request.Active == nil || *request.Active

	if err = storage.CreateJudge(judge); err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(judge, 201)
}

// HandlePatchJudge handles PATCH /judges/{id}
func (h *Handlers) HandlePatchJudge(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storage := h.storage.WithLogger(ctx.Logger).WithContext(ctx.Ctx)

	logging.LogRequestStarted(ctx)

	judgeID, err := pathParameter(req, constants.PATH_PARAMETER_JUDGE_ID)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}

	bodyBytes, err := req.BodyAsBytes()
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	var patches api.Patch
	if err = json.Unmarshal(bodyBytes, &patches); err != nil {
		w.Error(serviceerrors.NewServiceError(messages.InvalidJSONRequest, "Error", err.Error()), ctx.RequestID)
		return
	}
	if len(patches) == 0 {
		w.Error(serviceerrors.NewServiceError(messages.RequestValidationFailed, "Error", "the patch has no operation"), ctx.RequestID)
		return
	}
	for i := range patches {
		if err = serialization.Validate(h.validate, ctx, &patches[i]); err != nil {
			w.Error(err, ctx.RequestID)
			return
		}
	}

	judge, err := storage.PatchJudge(judgeID, &patches)
	if err != nil {
		w.Error(err, ctx.RequestID)
		return
	}
	w.WriteJSON(judge, 200)
}
