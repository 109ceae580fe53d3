package storage

import (
	"log/slog"
	"maps"
	"strings"

	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/storage/sql"
)

// NewStorage creates a new storage instance based on the configuration.
// It currently uses the SQL storage implementation, local mode forces the
// SQLite driver.
func NewStorage(cfg *config.Config, otelEnabled bool, logger *slog.Logger) (abstractions.Storage, error) {
	if cfg.Database == nil {
		return nil, serviceerrors.NewServiceError(messages.ConfigurationFailed, "Error", "database configuration")
	}

	databaseConfig := maps.Clone(*cfg.Database)
	if cfg.Service != nil && cfg.Service.LocalMode {
		databaseConfig["driver"] = sql.SQLITE_DRIVER
		if url, _ := databaseConfig["url"].(string); !strings.HasPrefix(url, "file:") {
			databaseConfig["url"] = "file:ai_judge.db"
		}
	}
	return sql.NewStorage(databaseConfig, otelEnabled, logger)
}
