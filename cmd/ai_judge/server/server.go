package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/common"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/handlers"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DEFAULT_PORT             = 8080
	DEFAULT_TERMINATION_FILE = "/dev/termination-log"

	readHeaderTimeout = 10 * time.Second
	// a run request is answered once the whole run has settled
	requestTimeout = 30 * time.Minute
)

type ServerClosedError struct{}

func (e *ServerClosedError) Error() string {
	return "server closed"
}

func (e *ServerClosedError) Is(target error) bool {
	_, ok := target.(*ServerClosedError)
	return ok
}

type HandlerFunc func(ctx *executioncontext.ExecutionContext, req http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper)

type Server struct {
	httpServer    *http.Server
	port          int
	logger        *slog.Logger
	serviceConfig *config.Config
	handlers      *handlers.Handlers
}

// NewServer creates the HTTP server of the service. The server is not
// listening until Start is called.
func NewServer(logger *slog.Logger,
	serviceConfig *config.Config,
	storage abstractions.Storage,
	validate *validator.Validate,
	orchestrator handlers.Orchestrator) (*Server, error) {
	if logger == nil {
		return nil, errors.New("the logger is required")
	}
	if serviceConfig == nil || serviceConfig.Service == nil {
		return nil, errors.New("the service configuration is required")
	}
	if storage == nil {
		return nil, errors.New("the storage is required")
	}
	if orchestrator == nil {
		return nil, errors.New("the orchestrator is required")
	}

	port := serviceConfig.Service.Port
	if port == 0 {
		port = DEFAULT_PORT
	}

	s := &Server{
		port:          port,
		logger:        logger,
		serviceConfig: serviceConfig,
		handlers:      handlers.New(storage, validate, orchestrator, serviceConfig),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

func (s *Server) GetPort() int {
	return s.port
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) setupRoutes() http.Handler {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleFunc(h.HandleHealth))

	mux.HandleFunc("POST /evaluate", s.handleFunc(h.HandleEvaluate))
	mux.HandleFunc("POST /run-evaluations", s.handleFunc(h.HandleRunEvaluations))

	mux.HandleFunc("GET /runs", s.handleFunc(h.HandleListRuns))
	mux.HandleFunc("GET /runs/{id}", s.handleFunc(h.HandleGetRun))
	mux.HandleFunc("GET /runs/{id}/evaluations", s.handleFunc(h.HandleListRunEvaluations))
	mux.HandleFunc("POST /runs/{id}/cancel", s.handleFunc(h.HandleCancelRun))

	mux.HandleFunc("GET /judges", s.handleFunc(h.HandleListJudges))
	mux.HandleFunc("POST /judges", s.handleFunc(h.HandleCreateJudge))
	mux.HandleFunc("GET /judges/{id}", s.handleFunc(h.HandleGetJudge))
	mux.HandleFunc("PATCH /judges/{id}", s.handleFunc(h.HandlePatchJudge))

	if s.serviceConfig.IsPrometheusEnabled() {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	var handler http.Handler = mux
	handler = Middleware(handler, s.serviceConfig.IsPrometheusEnabled(), s.logger)
	handler = CORSMiddleware(handler)
	handler = RecoveryMiddleware(handler, s.logger)
	return handler
}

// handleFunc adapts a service handler to net/http, every request gets its
// own execution context with a request id and a request scoped logger.
func (s *Server) handleFunc(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(constants.HEADER_REQUEST_ID)
		if requestID == "" {
			requestID = common.GUID()
		}
		w.Header().Set(constants.HEADER_REQUEST_ID, requestID)

		logger := logging.WithRequest(s.logger, requestID, r.Method, r.URL.RequestURI())
		ctx := executioncontext.NewExecutionContext(r.Context(), requestID, logger, requestTimeout)
		fn(ctx, http_wrappers.NewRequestWrapper(r), http_wrappers.NewResponseWrapper(w, ctx))
	}
}

// Start listens on the configured port and serves until Shutdown is called,
// in which case a ServerClosedError is returned.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("Server listening", "port", s.port)

	if err := s.setReady(); err != nil {
		s.logger.Error("Failed to write the ready file", "error", err.Error())
	}

	err = s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return &ServerClosedError{}
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if file := s.serviceConfig.Service.ReadyFile; file != "" {
		if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove the ready file", "file", file, "error", err.Error())
		}
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setReady() error {
	file := s.serviceConfig.Service.ReadyFile
	if file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, []byte("ready\n"), 0o644)
}

// GetTerminationFile returns the file that receives the termination message,
// conf may be nil when the configuration could not be loaded.
func GetTerminationFile(conf *config.Config, logger *slog.Logger) string {
	if conf != nil && conf.Service != nil && conf.Service.TerminationFile != "" {
		return conf.Service.TerminationFile
	}
	logger.Debug("Using the default termination file", "file", DEFAULT_TERMINATION_FILE)
	return DEFAULT_TERMINATION_FILE
}

// SetTerminationMessage writes msg to the termination file so that the
// container runtime can report why the service stopped.
func SetTerminationMessage(file string, msg string, logger *slog.Logger) error {
	if file == "" {
		return nil
	}
	if err := os.WriteFile(file, []byte(msg), 0o644); err != nil {
		return fmt.Errorf("failed to write termination file %s: %w", file, err)
	}
	logger.Info("Termination message written", "file", file)
	return nil
}
