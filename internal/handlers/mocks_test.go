package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/pkg/api"
)

type MockRequest struct {
	method     string
	uri        *url.URL
	headers    map[string]string
	pathValues map[string]string
	body       []byte
}

func createMockRequest(method string, uri string) *MockRequest {
	u, _ := url.Parse(uri)
	return &MockRequest{
		method:     method,
		uri:        u,
		headers:    map[string]string{},
		pathValues: map[string]string{},
	}
}

func (r *MockRequest) withBody(body string) *MockRequest {
	r.body = []byte(body)
	return r
}

func (r *MockRequest) withPathValue(name string, value string) *MockRequest {
	r.pathValues[name] = value
	return r
}

func (r *MockRequest) Method() string { return r.method }
func (r *MockRequest) URI() string { return r.uri.RequestURI() }
func (r *MockRequest) Path() string { return r.uri.Path }
func (r *MockRequest) Header(key string) string { return r.headers[key] }
func (r *MockRequest) SetHeader(key string, value string) { r.headers[key] = value }
func (r *MockRequest) Query(key string) []string { return r.uri.Query()[key] }
func (r *MockRequest) PathValue(name string) string { return r.pathValues[name] }
func (r *MockRequest) BodyAsBytes() ([]byte, error) { return r.body, nil }

type MockResponseWrapper struct {
	recorder *httptest.ResponseRecorder
}

func (w MockResponseWrapper) SetHeader(key string, value string) {
	w.recorder.Header().Set(key, value)
}

func (w MockResponseWrapper) SetStatusCode(code int) {
	w.recorder.WriteHeader(code)
}

func (w MockResponseWrapper) Write(buf []byte) (int, error) {
	return w.recorder.Write(buf)
}

func (w MockResponseWrapper) WriteJSON(v any, code int) {
	body, _ := json.Marshal(v)
	w.recorder.Header().Set("Content-Type", "application/json")
	w.recorder.WriteHeader(code)
	_, _ = w.recorder.Write(body)
}

func (w MockResponseWrapper) Error(err error, requestID string) {
	body, code := http_wrappers.ErrorBody(err, requestID)
	w.WriteJSON(body, code)
}

func newContext() *executioncontext.ExecutionContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return executioncontext.NewExecutionContext(context.Background(), "req-1", logger, time.Second)
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(recorder.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return v
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[api.Error](t, recorder).MessageCode
}
