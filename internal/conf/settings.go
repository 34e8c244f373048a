// Package conf loads engine configuration from YAML files and the environment.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. INCIDENTD_HTTP_LISTEN.
const EnvPrefix = "INCIDENTD"

// Settings is the root configuration.
type Settings struct {
	Database  DatabaseSettings  `mapstructure:"database" yaml:"database"`
	HTTP      HTTPSettings      `mapstructure:"http" yaml:"http"`
	Engine    EngineSettings    `mapstructure:"engine" yaml:"engine"`
	Checklist ChecklistSettings `mapstructure:"checklist" yaml:"checklist"`
	Logging   LoggingSettings   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetrySettings `mapstructure:"telemetry" yaml:"telemetry"`
}

// DatabaseSettings selects and tunes the gorm dialect.
type DatabaseSettings struct {
	Driver       string `mapstructure:"driver" yaml:"driver"` // sqlite, mysql or postgres
	Path         string `mapstructure:"path" yaml:"path"`     // sqlite file
	DSN          string `mapstructure:"dsn" yaml:"dsn"`       // mysql/postgres
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
}

// HTTPSettings configures the API server.
type HTTPSettings struct {
	Listen         string   `mapstructure:"listen" yaml:"listen"`
	RateLimit      float64  `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second per client
	RateBurst      int      `mapstructure:"rate_burst" yaml:"rate_burst"`
	RequestTimeout Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// EngineSettings tunes the orchestration engine.
type EngineSettings struct {
	// SurfacingThreshold is the minimum severity score for EVALUATED -> ACTIVE.
	SurfacingThreshold int      `mapstructure:"surfacing_threshold" yaml:"surfacing_threshold"`
	ConflictRetries    int      `mapstructure:"conflict_retries" yaml:"conflict_retries"`
	RetryBackoff       Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`
	ChecklistCacheTTL  Duration `mapstructure:"checklist_cache_ttl" yaml:"checklist_cache_ttl"`
	// StaleAfter is how long an incident may go unobserved before the expire sweep ends it.
	StaleAfter Duration `mapstructure:"stale_after" yaml:"stale_after"`
	// ProposalRules replaces the built-in action proposal rules when non-empty.
	ProposalRules []ProposalRuleSettings `mapstructure:"proposal_rules" yaml:"proposal_rules"`
}

// ProposalRuleSettings is the config form of an action proposal rule.
type ProposalRuleSettings struct {
	Name       string              `mapstructure:"name" yaml:"name"`
	ActionType string              `mapstructure:"action_type" yaml:"action_type"`
	Title      string              `mapstructure:"title" yaml:"title"`
	CTALabel   string              `mapstructure:"cta_label" yaml:"cta_label"`
	Conditions []ConditionSettings `mapstructure:"conditions" yaml:"conditions"`
}

// ConditionSettings is one condition of a proposal rule.
type ConditionSettings struct {
	Property string `mapstructure:"property" yaml:"property"`
	Operator string `mapstructure:"operator" yaml:"operator"`
	Value    string `mapstructure:"value" yaml:"value"`
}

// ChecklistSettings selects where checklist items are looked up.
type ChecklistSettings struct {
	Source  string   `mapstructure:"source" yaml:"source"` // db or http
	BaseURL string   `mapstructure:"base_url" yaml:"base_url"`
	Timeout Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LoggingSettings configures the process logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// TelemetrySettings configures error reporting. An empty DSN disables it.
type TelemetrySettings struct {
	SentryDSN   string `mapstructure:"sentry_dsn" yaml:"sentry_dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "incidents.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.log_level", "silent")

	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.request_timeout", "10s")

	v.SetDefault("engine.surfacing_threshold", 35)
	v.SetDefault("engine.conflict_retries", 3)
	v.SetDefault("engine.retry_backoff", "50ms")
	v.SetDefault("engine.checklist_cache_ttl", "30s")
	v.SetDefault("engine.stale_after", "720h")

	v.SetDefault("checklist.source", "db")
	v.SetDefault("checklist.timeout", "3s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("telemetry.environment", "production")
}

// Load reads settings from configFile (optional) and the environment.
// Without an explicit file it looks for incidentd.yaml in the working directory
// and /etc/incidentd; a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("incidentd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/incidentd")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals v into Settings and validates the result.
func Decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	switch s.Database.Driver {
	case "sqlite":
		if s.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "mysql", "postgres":
		if s.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for %s", s.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", s.Database.Driver)
	}

	if s.Engine.SurfacingThreshold < 0 || s.Engine.SurfacingThreshold > 100 {
		return fmt.Errorf("engine.surfacing_threshold must be within 0-100, got %d", s.Engine.SurfacingThreshold)
	}
	if s.Engine.ConflictRetries < 0 {
		return fmt.Errorf("engine.conflict_retries must not be negative")
	}

	switch s.Checklist.Source {
	case "db":
	case "http":
		if s.Checklist.BaseURL == "" {
			return fmt.Errorf("checklist.base_url is required when checklist.source is http")
		}
	default:
		return fmt.Errorf("unsupported checklist.source %q", s.Checklist.Source)
	}
	return nil
}

// StaleCutoff returns the observation time before which open incidents expire.
func (e EngineSettings) StaleCutoff(now time.Time) time.Time {
	return now.Add(-e.StaleAfter.Std())
}
