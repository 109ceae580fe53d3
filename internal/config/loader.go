package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/ai-judge/ai-judge/internal/constants"
	"github.com/spf13/viper"
)

const (
	configName       = "config"
	configType       = "yaml"
	optionalSuffix   = ":optional"
	redactedValue    = "[redacted]"
	secretsConfigKey = "secrets"
)

// redactedFields are never logged in clear text.
var redactedFields = []string{
	"database.url",
	"database.password",
	"database.service_key",
	"providers.openai.api_key",
	"providers.anthropic.api_key",
	"providers.gemini.api_key",
	"export.s3.secret_access_key",
}

// envBindings maps configuration keys onto the environment variables that
// override them.
var envBindings = map[string]string{
	"database.url":                constants.ENV_DATABASE_URL,
	"database.service_key":        constants.ENV_DATABASE_SERVICE_KEY,
	"providers.openai.api_key":    constants.ENV_OPENAI_API_KEY,
	"providers.anthropic.api_key": constants.ENV_ANTHROPIC_API_KEY,
	"providers.gemini.api_key":    constants.ENV_GEMINI_API_KEY,
}

// LoadConfig reads config.yaml from configDir (or the default lookup paths),
// merges the file named by CONFIG_PATH on top of it, applies the secrets
// mappings and the environment overrides, and decodes the result.
func LoadConfig(logger *slog.Logger, version string, build string, buildDate string, configDir string) (*Config, error) {
	base, err := readConfigFile(logger, configDir)
	if err != nil {
		return nil, err
	}
	settings := base.AllSettings()

	if overridePath := os.Getenv(constants.ENV_CONFIG_PATH); overridePath != "" {
		override := viper.New()
		override.SetConfigFile(overridePath)
		if err := override.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s config %s: %w", constants.ENV_CONFIG_PATH, overridePath, err)
		}
		logger.Info("Merging configuration override", "path", overridePath)
		settings = mergeSettings(settings, override.AllSettings())
	}

	v := viper.New()
	setDefaults(v)
	if err := v.MergeConfigMap(settings); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := applySecrets(logger, v); err != nil {
		return nil, err
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if conf.Service == nil {
		conf.Service = &ServiceConfig{}
	}
	conf.Service.Version = version
	conf.Service.Build = build
	conf.Service.BuildDate = buildDate
	if conf.Orchestrator == nil {
		conf.Orchestrator = DefaultOrchestratorConfig()
	}

	logger.Info("Service configuration loaded", "config", RedactedJSON(conf, redactedFields))
	return conf, nil
}

func readConfigFile(logger *slog.Logger, configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		for _, dir := range defaultConfigDirs() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration: %w", err)
		}
		logger.Warn("No configuration file found, using defaults", "config_dir", configDir)
		return v, nil
	}
	logger.Info("Read configuration file", "path", v.ConfigFileUsed())
	return v, nil
}

func defaultConfigDirs() []string {
	return []string{"./config", "../config", "../../config", "/etc/ai-judge"}
}

func setDefaults(v *viper.Viper) {
	d := DefaultOrchestratorConfig()
	v.SetDefault("service.port", 8080)
	v.SetDefault("orchestrator.default_concurrency", d.DefaultConcurrency)
	v.SetDefault("orchestrator.max_concurrency", d.MaxConcurrency)
	v.SetDefault("orchestrator.llm_timeout", d.LLMTimeout)
	v.SetDefault("orchestrator.parse_attempts", d.ParseAttempts)
	v.SetDefault("orchestrator.provider_retries", d.ProviderRetries)
	v.SetDefault("orchestrator.provider_backoff", d.ProviderBackoff)
	v.SetDefault("orchestrator.reasoning_max_length", d.ReasoningMaxLength)
	v.SetDefault("orchestrator.max_error_messages", d.MaxErrorMessages)
	v.SetDefault("orchestrator.max_tokens", d.MaxTokens)
	v.SetDefault("orchestrator.temperature", d.Temperature)
}

// mergeSettings deep merges override into base. The secrets section is
// replaced as a whole so that bundled mappings never leak into an operator
// supplied configuration.
func mergeSettings(base map[string]any, override map[string]any) map[string]any {
	merged := maps.Clone(base)
	if merged == nil {
		merged = map[string]any{}
	}
	for key, value := range override {
		if key == secretsConfigKey {
			merged[key] = value
			continue
		}
		baseMap, baseIsMap := merged[key].(map[string]any)
		overrideMap, overrideIsMap := value.(map[string]any)
		if baseIsMap && overrideIsMap {
			merged[key] = mergeNested(baseMap, overrideMap)
			continue
		}
		merged[key] = value
	}
	return merged
}

func mergeNested(base map[string]any, override map[string]any) map[string]any {
	merged := maps.Clone(base)
	for key, value := range override {
		baseMap, baseIsMap := merged[key].(map[string]any)
		overrideMap, overrideIsMap := value.(map[string]any)
		if baseIsMap && overrideIsMap {
			merged[key] = mergeNested(baseMap, overrideMap)
			continue
		}
		merged[key] = value
	}
	return merged
}

// applySecrets reads each mapped file from the secrets directory and sets
// its trimmed content on the mapped configuration key.
func applySecrets(logger *slog.Logger, v *viper.Viper) error {
	secrets := SecretsConfig{}
	if err := v.UnmarshalKey(secretsConfigKey, &secrets); err != nil {
		return fmt.Errorf("failed to decode secrets configuration: %w", err)
	}
	if secrets.Dir == "" || len(secrets.Mappings) == 0 {
		return nil
	}
	for file, key := range secrets.Mappings {
		optional := strings.HasSuffix(file, optionalSuffix)
		name := strings.TrimSuffix(file, optionalSuffix)
		path := filepath.Join(secrets.Dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			if optional && errors.Is(err, os.ErrNotExist) {
				logger.Debug("Optional secret not found", "path", path)
				continue
			}
			return fmt.Errorf("failed to read secret %s for %s: %w", path, key, err)
		}
		v.Set(key, strings.TrimSpace(string(content)))
		logger.Info("Loaded secret", "path", path, "key", key)
	}
	return nil
}

// RedactedJSON serializes v and replaces the values at the given dotted
// paths. URLs keep everything but their password, other values become
// "[redacted]". Paths that do not exist are ignored.
func RedactedJSON(v any, fields []string) string {
	js, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("failed to serialize: %s", err.Error())
	}
	if len(fields) == 0 {
		return string(js)
	}
	container, err := gabs.ParseJSON(js)
	if err != nil {
		return string(js)
	}
	for _, field := range fields {
		if !container.ExistsP(field) {
			continue
		}
		value, ok := container.Path(field).Data().(string)
		if !ok || value == "" {
			continue
		}
		if _, err := container.SetP(redact(value), field); err != nil {
			return fmt.Sprintf("failed to redact %s: %s", field, err.Error())
		}
	}
	return container.String()
}

func redact(value string) string {
	if !strings.Contains(value, "://") {
		return redactedValue
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return redactedValue
	}
	if parsed.User != nil {
		parsed.User = url.User(parsed.User.Username())
	}
	return parsed.String()
}
