package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Log level env: LOG_LEVEL=debug|info|warn|error (default: info).
const envLogLevel = "LOG_LEVEL"

type ShutdownFunc func() error

// NewLogger creates the service logger. zap does the encoding with the
// production settings and ISO8601 timestamps, callers see a *slog.Logger.
// The returned ShutdownFunc flushes buffered entries.
func NewLogger() (*slog.Logger, ShutdownFunc, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level := parseLogLevel(os.Getenv(envLogLevel)); level != nil {
		logConfig.Level = zap.NewAtomicLevelAt(*level)
	}
	zapLog, err := logConfig.Build()
	if err != nil {
		return nil, nil, err
	}
	f := newShutdownFunc(zapLog.Core())
	// we want the caller in our logs for debugging purposes
	return slog.New(zapslog.NewHandler(zapLog.Core(), zapslog.WithCaller(true))), f, nil
}

func FallbackLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewLogrLogger adapts the service logger for libraries that log through logr,
// such as the OpenTelemetry SDK.
func NewLogrLogger(logger *slog.Logger) logr.Logger {
	return logr.FromSlogHandler(logger.Handler())
}

// WithRequest returns a logger enriched with the request details.
func WithRequest(logger *slog.Logger, requestID string, method string, uri string) *slog.Logger {
	return logger.With("request_id", requestID, "method", method, "uri", uri)
}

func newShutdownFunc(core zapcore.Core) ShutdownFunc {
	return func() error {
		return core.Sync()
	}
}

func parseLogLevel(s string) *zapcore.Level {
	var l zapcore.Level
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		l = zapcore.DebugLevel
	case "warn":
		l = zapcore.WarnLevel
	case "error":
		l = zapcore.ErrorLevel
	default:
		return nil
	}
	return &l
}

// SkipCallersForInfo logs msg at level with the caller set to the function
// skip frames up the stack, so the request helpers below report the handler
// as the caller instead of themselves.
func SkipCallersForInfo(ctx context.Context, logger *slog.Logger, level slog.Level, skip int, msg string, args ...any) {
	if !logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(ctx, r)
}

func LogRequestStarted(ctx *executioncontext.ExecutionContext) {
	SkipCallersForInfo(ctx.Ctx, ctx.Logger, slog.LevelInfo, 3, "Request started")
}

func LogRequestFailed(ctx *executioncontext.ExecutionContext, code int, errorMessage string) {
	// the request details and requestId have already been added to the logger
	SkipCallersForInfo(ctx.Ctx, ctx.Logger, slog.LevelInfo, 3, "Request failed", "error", errorMessage, "code", code, "duration", ctx.Elapsed().String())
}

func LogRequestSuccess(ctx *executioncontext.ExecutionContext, code int, response any) {
	if ctx.Logger.Enabled(ctx.Ctx, slog.LevelDebug) && response != nil {
		SkipCallersForInfo(ctx.Ctx, ctx.Logger, slog.LevelDebug, 3, "Request successful", "code", code, "response", response, "duration", ctx.Elapsed().String())
		return
	}
	SkipCallersForInfo(ctx.Ctx, ctx.Logger, slog.LevelInfo, 3, "Request successful", "code", code, "duration", ctx.Elapsed().String())
}
