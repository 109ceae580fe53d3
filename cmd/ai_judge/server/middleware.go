package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/metrics"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
)

// Middleware wraps an http.Handler to collect Prometheus metrics
func Middleware(next http.Handler, prometheusMetrics bool, logger *slog.Logger) http.Handler {
	handler := next
	if prometheusMetrics {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			metrics.HTTPRequestInFlight.Inc()
			defer metrics.HTTPRequestInFlight.Dec()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			// the route pattern keeps the label cardinality bounded
			endpoint := r.Pattern
			if endpoint == "" {
				endpoint = "unmatched"
			}
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestDuration.WithLabelValues(r.Method, endpoint, status).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestTotal.WithLabelValues(r.Method, endpoint, status).Inc()
		})
		logger.Info("Enabled Prometheus metrics middleware")
	}

	return handler
}

// CORSMiddleware allows every origin and answers preflight requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+constants.HEADER_REQUEST_ID)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware turns a handler panic into an internal server error.
func RecoveryMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Request panicked", "method", r.Method, "uri", r.URL.RequestURI(), "panic", rec, "stack", string(debug.Stack()))
				if rw.wroteHeader {
					return
				}
				err := serviceerrors.NewServiceError(messages.InternalServerError, "Error", fmt.Sprintf("%v", rec))
				http_wrappers.NewResponseWrapper(rw, nil).Error(err, w.Header().Get(constants.HEADER_REQUEST_ID))
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
