package executioncontext

import (
	"context"
	"log/slog"
	"time"
)

// ExecutionContext contains execution context for API operations. Handlers
// receive an ExecutionContext instead of a raw http.Request.
//
// The ExecutionContext contains:
//   - Logger: A request-scoped logger with enriched fields (request_id, method, uri, etc.)
//   - Timeout: the upper bound for synchronous work done on behalf of the request
type ExecutionContext struct {
	Ctx       context.Context
	RequestID string
	Logger    *slog.Logger
	StartedAt time.Time
	Timeout   time.Duration
}

// This struct contains per request context information
func NewExecutionContext(
	ctx context.Context,
	requestID string,
	logger *slog.Logger,
	timeout time.Duration,
) *ExecutionContext {
	return &ExecutionContext{
		Ctx:       ctx,
		RequestID: requestID,
		Logger:    logger,
		StartedAt: time.Now(),
		Timeout:   timeout,
	}
}

func (e *ExecutionContext) WithContext(ctx context.Context) *ExecutionContext {
	return &ExecutionContext{
		Ctx:       ctx,
		RequestID: e.RequestID,
		Logger:    e.Logger,
		StartedAt: e.StartedAt,
		Timeout:   e.Timeout,
	}
}

// Elapsed returns the time since the request started.
func (e *ExecutionContext) Elapsed() time.Duration {
	return time.Since(e.StartedAt)
}
