package http_wrappers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/pkg/api"
)

type httpRequest struct {
	r    *http.Request
	body []byte
	read bool
}

func NewRequestWrapper(r *http.Request) RequestWrapper {
	return &httpRequest{r: r}
}

func (h *httpRequest) Method() string {
	return h.r.Method
}

func (h *httpRequest) URI() string {
	return h.r.URL.RequestURI()
}

func (h *httpRequest) Path() string {
	return h.r.URL.Path
}

func (h *httpRequest) Header(key string) string {
	return h.r.Header.Get(key)
}

func (h *httpRequest) SetHeader(key string, value string) {
	h.r.Header.Set(key, value)
}

func (h *httpRequest) Query(key string) []string {
	return h.r.URL.Query()[key]
}

func (h *httpRequest) PathValue(name string) string {
	return h.r.PathValue(name)
}

// BodyAsBytes reads the body once and caches it for later calls.
func (h *httpRequest) BodyAsBytes() ([]byte, error) {
	if h.read {
		return h.body, nil
	}
	if h.r.Body == nil {
		h.read = true
		return nil, nil
	}
	defer h.r.Body.Close()
	body, err := io.ReadAll(h.r.Body)
	if err != nil {
		return nil, serviceerrors.NewServiceError(messages.InvalidJSONRequest, "Error", err.Error())
	}
	h.body = body
	h.read = true
	return body, nil
}

type httpResponse struct {
	w   http.ResponseWriter
	ctx *executioncontext.ExecutionContext
}

func NewResponseWrapper(w http.ResponseWriter, ctx *executioncontext.ExecutionContext) ResponseWrapper {
	return &httpResponse{w: w, ctx: ctx}
}

func (h *httpResponse) SetHeader(key string, value string) {
	h.w.Header().Set(key, value)
}

func (h *httpResponse) SetStatusCode(code int) {
	h.w.WriteHeader(code)
}

func (h *httpResponse) Write(buf []byte) (int, error) {
	return h.w.Write(buf)
}

func (h *httpResponse) WriteJSON(v any, code int) {
	body, err := json.Marshal(v)
	if err != nil {
		h.Error(serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error()), h.requestID())
		return
	}
	h.w.Header().Set("Content-Type", "application/json")
	h.w.WriteHeader(code)
	if _, err := h.w.Write(body); err != nil && h.ctx != nil {
		h.ctx.Logger.Error("Failed to write response", "error", err.Error())
		return
	}
	if h.ctx != nil {
		logging.LogRequestSuccess(h.ctx, code, v)
	}
}

func (h *httpResponse) Error(err error, requestID string) {
	body, code := ErrorBody(err, requestID)
	if h.ctx != nil {
		logging.LogRequestFailed(h.ctx, code, body.Message)
	}
	js, _ := json.Marshal(body)
	h.w.Header().Set("Content-Type", "application/json")
	h.w.WriteHeader(code)
	_, _ = h.w.Write(js)
}

func (h *httpResponse) requestID() string {
	if h.ctx == nil {
		return ""
	}
	return h.ctx.RequestID
}

// ErrorBody converts any error into the API error body and its HTTP status.
// Errors that are not service errors are reported as internal errors.
func ErrorBody(err error, requestID string) (*api.Error, int) {
	var se *serviceerrors.ServiceError
	if !errors.As(err, &se) {
		se = serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error())
	}
	return &api.Error{
		Success:     false,
		Message:     se.Error(),
		MessageCode: se.MessageCode().GetCode(),
		Trace:       requestID,
	}, se.StatusCode()
}
