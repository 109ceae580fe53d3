package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ai-judge/ai-judge/cmd/ai_judge/server"
	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/validation"
	"github.com/ai-judge/ai-judge/pkg/api"
)

type fakeStorage struct {
	abstractions.Storage
}

func (f *fakeStorage) WithLogger(_ *slog.Logger) abstractions.Storage { return f }
func (f *fakeStorage) WithContext(_ context.Context) abstractions.Storage { return f }
func (f *fakeStorage) GetDriverName() string { return "fake" }
func (f *fakeStorage) Ping(_ time.Duration) error { return nil }
func (f *fakeStorage) GetRun(id string) (*api.Run, error) {
	return nil, serviceerrors.NewServiceError(messages.ResourceNotFound, "Type", "run", "ResourceId", id)
}

type fakeOrchestrator struct{}

func (fakeOrchestrator) RunEvaluations(_ context.Context, _ string, _ *int) (*api.RunEvaluationsResponse, error) {
	return nil, errors.New("not used")
}
func (fakeOrchestrator) Evaluate(_ context.Context, _ api.EvaluationTask) (*api.Evaluation, error) {
	panic("evaluate exploded")
}
func (fakeOrchestrator) CancelRun(_ string) error { return nil }
func (fakeOrchestrator) ActiveRuns() int { return 0 }

func newServer(t *testing.T, serviceConfig *config.Config) *server.Server {
	t.Helper()
	validate, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator() failed: %v", err)
	}
	srv, err := server.NewServer(logging.FallbackLogger(), serviceConfig, &fakeStorage{}, validate, fakeOrchestrator{})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return srv
}

func TestNewServer(t *testing.T) {
	t.Run("defaults the port", func(t *testing.T) {
		srv := newServer(t, &config.Config{Service: &config.ServiceConfig{}})
		if srv.GetPort() != server.DEFAULT_PORT {
			t.Fatalf("expected port %d, got %d", server.DEFAULT_PORT, srv.GetPort())
		}
	})

	t.Run("requires the service configuration", func(t *testing.T) {
		if _, err := server.NewServer(logging.FallbackLogger(), &config.Config{}, &fakeStorage{}, nil, fakeOrchestrator{}); err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func TestRoutes(t *testing.T) {
	srv := newServer(t, &config.Config{Service: &config.ServiceConfig{Port: 9090}})
	handler := srv.Handler()

	t.Run("health echoes the request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(constants.HEADER_REQUEST_ID, "abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || rec.Header().Get(constants.HEADER_REQUEST_ID) != "abc" {
			t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("missing CORS header")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/run-evaluations", nil))
		if rec.Code != http.StatusNoContent || !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "POST") {
			t.Fatalf("unexpected preflight response %d %v", rec.Code, rec.Header())
		}
	})

	t.Run("path values reach the handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/r9", nil))
		var body api.Error
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
		}
		if rec.Code != http.StatusNotFound || !strings.Contains(body.Message, "r9") || body.Trace == "" {
			t.Fatalf("unexpected response %d %+v", rec.Code, body)
		}
	})

	t.Run("panics become internal errors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{"submissionId":"s1","templateId":"t1","judgeId":"j1"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), messages.InternalServerError.GetCode()) {
			t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("metrics are off by default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestMetricsRoute(t *testing.T) {
	srv := newServer(t, &config.Config{Service: &config.ServiceConfig{}, Prometheus: &config.PrometheusConfig{Enabled: true}})
	handler := srv.Handler()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `ai_judge_http_requests_total{endpoint="GET /health"`) {
		t.Fatalf("unexpected metrics %d", rec.Code)
	}
}

func TestServerClosedError(t *testing.T) {
	var err error = &server.ServerClosedError{}
	if !errors.Is(err, &server.ServerClosedError{}) {
		t.Fatalf("expected the closed error to match")
	}
	if errors.Is(errors.New("other"), &server.ServerClosedError{}) {
		t.Fatalf("unexpected match")
	}
}

func TestTerminationMessage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "termination-log")
	conf := &config.Config{Service: &config.ServiceConfig{TerminationFile: file}}
	logger := logging.FallbackLogger()

	if got := server.GetTerminationFile(conf, logger); got != file {
		t.Fatalf("expected %s, got %s", file, got)
	}
	if got := server.GetTerminationFile(nil, logger); got != server.DEFAULT_TERMINATION_FILE {
		t.Fatalf("expected the default file, got %s", got)
	}
	if err := server.SetTerminationMessage(file, "storage unreachable", logger); err != nil {
		t.Fatalf("SetTerminationMessage() failed: %v", err)
	}
	content, err := os.ReadFile(file)
	if err != nil || string(content) != "storage unreachable" {
		t.Fatalf("unexpected termination message %q: %v", content, err)
	}
}
