package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ai-judge/ai-judge/pkg/api"
	"go.yaml.in/yaml/v2"
)

const judgesDir = "judges"

// LoadJudgeConfigs reads the judge definitions from <configDir>/judges/*.yaml.
// With an empty configDir the default lookup paths are searched and the
// first existing judges directory wins. Definitions without an id are skipped.
func LoadJudgeConfigs(logger *slog.Logger, configDir string) (map[string]api.Judge, error) {
	judges := map[string]api.Judge{}

	dir := ""
	if configDir != "" {
		dir = filepath.Join(configDir, judgesDir)
	} else {
		for _, d := range defaultConfigDirs() {
			candidate := filepath.Join(d, judgesDir)
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				dir = candidate
				break
			}
		}
	}
	if dir == "" {
		logger.Info("No judges directory found")
		return judges, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No judges directory found", "dir", dir)
			return judges, nil
		}
		return nil, fmt.Errorf("failed to read judges directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read judge file %s: %w", path, err)
		}
		judge := api.Judge{}
		if err := yaml.Unmarshal(content, &judge); err != nil {
			return nil, fmt.Errorf("failed to parse judge file %s: %w", path, err)
		}
		if judge.ID == "" {
			logger.Warn("Skipping judge without id", "path", path)
			continue
		}
		judges[judge.ID] = judge
		logger.Info("Loaded judge", "judge_id", judge.ID, "provider", judge.Provider, "model", judge.Model)
	}
	return judges, nil
}
