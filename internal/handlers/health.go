package handlers

import (
	"time"

	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/http_wrappers"
)

const (
	STATUS_HEALTHY   = "healthy"
	STATUS_UNHEALTHY = "unhealthy"

	healthPingTimeout = time.Second
)

type HealthResponse struct {
	Status     string       `json:"status"`
	Timestamp  time.Time    `json:"timestamp"`
	Version    string       `json:"version,omitempty"`
	ActiveRuns int          `json:"activeRuns"`
	Storage    *StorageInfo `json:"storage,omitempty"`
}

type StorageInfo struct {
	Driver string `json:"driver"`
	Error  string `json:"error,omitempty"`
}

// HandleHealth handles GET /health
func (h *Handlers) HandleHealth(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	healthInfo := HealthResponse{
		Status:    STATUS_HEALTHY,
		Timestamp: time.Now().UTC(),
	}
	if h.serviceConfig != nil && h.serviceConfig.Service != nil {
		healthInfo.Version = h.serviceConfig.Service.Version
	}
	if h.orchestrator != nil {
		healthInfo.ActiveRuns = h.orchestrator.ActiveRuns()
	}

	code := 200
	if h.storage != nil {
		healthInfo.Storage = &StorageInfo{
			Driver: h.storage.GetDriverName(),
		}
		if err := h.storage.WithContext(ctx.Ctx).WithLogger(ctx.Logger).Ping(healthPingTimeout); err != nil {
			healthInfo.Status = STATUS_UNHEALTHY
			healthInfo.Storage.Error = err.Error()
			code = 503
		}
	}
	w.WriteJSON(healthInfo, code)
}
