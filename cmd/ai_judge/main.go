package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ai-judge/ai-judge/cmd/ai_judge/server"
	"github.com/ai-judge/ai-judge/internal/abstractions"
	"github.com/ai-judge/ai-judge/internal/config"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/ai-judge/ai-judge/internal/export"
	"github.com/ai-judge/ai-judge/internal/invoker"
	"github.com/ai-judge/ai-judge/internal/llm"
	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/messages"
	"github.com/ai-judge/ai-judge/internal/orchestrator"
	"github.com/ai-judge/ai-judge/internal/otel"
	"github.com/ai-judge/ai-judge/internal/serviceerrors"
	"github.com/ai-judge/ai-judge/internal/storage"
	"github.com/ai-judge/ai-judge/internal/validation"
	"github.com/ai-judge/ai-judge/pkg/api"
	flag "github.com/spf13/pflag"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

type Args struct {
	ConfigDir string
	LocalMode bool
}

func args() Args {
	dir := flag.String("configdir", "", "Directory to search for configuration files.")
	local := flag.Bool("local", false, "Use the local SQLite storage.")
	flag.Parse()

	configDir := *dir
	if configDir == "" {
		configDir = os.Getenv(constants.ENV_CONFIG_DIR)
	}

	return Args{
		ConfigDir: configDir,
		LocalMode: *local,
	}
}

func main() {
	args := args()

	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		// we do this as no point trying to continue
		startUpFailed(nil, err, "Failed to create service logger", logging.FallbackLogger())
	}

	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate, args.ConfigDir)
	if err != nil {
		startUpFailed(nil, err, "Failed to create service config", logger)
	}
	if args.LocalMode {
		serviceConfig.Service.LocalMode = true
	}
	if serviceConfig.Orchestrator == nil {
		serviceConfig.Orchestrator = config.DefaultOrchestratorConfig()
	}

	validate, err := validation.NewValidator()
	if err != nil {
		startUpFailed(serviceConfig, err, "Failed to create validator", logger)
	}

	store, err := storage.NewStorage(serviceConfig, serviceConfig.IsOTELEnabled(), logger)
	if err != nil {
		startUpFailed(serviceConfig, err, "Failed to create storage", logger)
	}

	judges, err := config.LoadJudgeConfigs(logger, args.ConfigDir)
	if err != nil {
		startUpFailed(serviceConfig, err, "Failed to load judge configs", logger)
	}
	if err := seedJudges(store, judges, logger); err != nil {
		startUpFailed(serviceConfig, err, "Failed to seed judges", logger)
	}

	// setup OTEL before the provider clients so that their transport is traced
	var otelShutdown func(context.Context) error
	if serviceConfig.IsOTELEnabled() {
		shutdown, err := otel.SetupOTEL(context.Background(), serviceConfig.OTEL, Version, logger)
		if err != nil {
			startUpFailed(serviceConfig, err, "Failed to setup OTEL", logger)
		}
		otelShutdown = shutdown
	}

	httpClient := otel.NewHTTPClient(serviceConfig.IsOTELEnabled(), 0)
	providers, err := llm.NewRegistry(context.Background(), serviceConfig.Providers, httpClient, logger)
	if err != nil {
		startUpFailed(serviceConfig, err, "Failed to create LLM providers", logger)
	}

	orch := orchestrator.New(store, invoker.New(providers, serviceConfig.Orchestrator, logger), serviceConfig, logger)
	if serviceConfig.IsExportEnabled() {
		exporter, err := export.NewS3Exporter(context.Background(), serviceConfig.Export.S3, logger)
		if err != nil {
			startUpFailed(serviceConfig, err, "Failed to create run exporter", logger)
		}
		orch = orch.WithExporter(exporter)
	}

	srv, err := server.NewServer(logger, serviceConfig, store, validate, orch)
	if err != nil {
		startUpFailed(serviceConfig, err, "Failed to create server", logger)
	}

	logger.Info("Server starting",
		"server_port", srv.GetPort(),
		"version", serviceConfig.Service.Version,
		"build", serviceConfig.Service.Build,
		"build_date", serviceConfig.Service.BuildDate,
		"storage", store.GetDriverName(),
		"local", serviceConfig.Service.LocalMode,
		"providers", providers.Names(),
		"judges", len(judges),
		"export", serviceConfig.IsExportEnabled(),
		"otel", serviceConfig.IsOTELEnabled(),
		"prometheus", serviceConfig.IsPrometheusEnabled(),
	)

	go func() {
		if err := srv.Start(); err != nil {
			if errors.Is(err, &server.ServerClosedError{}) {
				logger.Info("Server closed gracefully")
				return
			}
			startUpFailed(serviceConfig, err, "Server failed to start", logger)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	waitForShutdown := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), waitForShutdown)
	defer cancel()

	// active runs stop admitting tasks, their handlers answer with the
	// partial summary before the server stops
	logger.Info("Cancelling active runs...", "active_runs", orch.ActiveRuns())
	orch.CancelAll()

	logger.Info("Shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error(), "timeout", waitForShutdown)
	} else {
		logger.Info("Server shutdown gracefully")
	}

	logger.Info("Shutting down storage...")
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage", "error", err.Error())
	}

	if otelShutdown != nil {
		logger.Info("Shutting down OTEL...")
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown OTEL", "error", err.Error())
		}
	}

	_ = logShutdown() // ignore the error
}

// seedJudges stores the judges read from the configuration directory,
// judges that already exist are left untouched.
func seedJudges(store abstractions.Storage, judges map[string]api.Judge, logger *slog.Logger) error {
	for _, id := range slices.Sorted(maps.Keys(judges)) {
		judge := judges[id]
		err := store.CreateJudge(&judge)
		switch {
		case err == nil:
			logger.Info("Judge seeded", "judge_id", id, "provider", judge.Provider, "model", judge.Model)
		case errors.Is(err, serviceerrors.NewServiceError(messages.ResourceAlreadyExists)):
			logger.Debug("Judge already exists", "judge_id", id)
		default:
			return err
		}
	}
	return nil
}

func startUpFailed(conf *config.Config, err error, msg string, logger *slog.Logger) {
	termErr := server.SetTerminationMessage(server.GetTerminationFile(conf, logger), fmt.Sprintf("%s: %s", msg, err.Error()), logger)
	if termErr != nil {
		logger.Error("Failed to set termination message", "message", msg, "error", termErr.Error())
		log.Println(termErr.Error())
	}
	log.Fatal(err)
}
