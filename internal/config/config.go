package config

type Config struct {
	Service      *ServiceConfig      `mapstructure:"service" json:"service"`
	Database     *map[string]any     `mapstructure:"database" json:"database"`
	Orchestrator *OrchestratorConfig `mapstructure:"orchestrator" json:"orchestrator"`
	Providers    *ProvidersConfig    `mapstructure:"providers,omitempty" json:"providers,omitempty"`
	Export       *ExportConfig       `mapstructure:"export,omitempty" json:"export,omitempty"`
	Secrets      *SecretsConfig      `mapstructure:"secrets,omitempty" json:"secrets,omitempty"`
	OTEL         *OTELConfig         `mapstructure:"otel,omitempty" json:"otel,omitempty"`
	Prometheus   *PrometheusConfig   `mapstructure:"prometheus,omitempty" json:"prometheus,omitempty"`
}

type ServiceConfig struct {
	Version         string `mapstructure:"version,omitempty" json:"version"`
	Build           string `mapstructure:"build,omitempty" json:"build"`
	BuildDate       string `mapstructure:"build_date,omitempty" json:"build_date"`
	Port            int    `mapstructure:"port" json:"port"`
	ReadyFile       string `mapstructure:"ready_file" json:"ready_file"`
	TerminationFile string `mapstructure:"termination_file" json:"termination_file"`
	// LocalMode selects the SQLite storage
	LocalMode bool `mapstructure:"local_mode,omitempty" json:"local_mode"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// SecretsConfig maps files in Dir onto configuration keys. A file name with
// the ":optional" suffix may be missing.
type SecretsConfig struct {
	Dir      string            `mapstructure:"dir" json:"dir"`
	Mappings map[string]string `mapstructure:"mappings" json:"mappings"`
}

func (c *Config) IsOTELEnabled() bool {
	return (c != nil) && (c.OTEL != nil) && c.OTEL.Enabled
}

func (c *Config) IsPrometheusEnabled() bool {
	return (c != nil) && (c.Prometheus != nil) && c.Prometheus.Enabled
}

func (c *Config) IsExportEnabled() bool {
	return (c != nil) && (c.Export != nil) && (c.Export.S3 != nil) && c.Export.S3.Enabled
}
