package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"

	"github.com/toolradar-lab/toolradar/internal/core/scoring"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Jobs      JobsConfig      `koanf:"jobs"`
	Ads       AdsConfig       `koanf:"ads"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// AnalyticsConfig holds the aggregation window, retention policy and scoring
// profile selection.
type AnalyticsConfig struct {
	WindowDays             int    `koanf:"window_days"`
	RetentionDays          int    `koanf:"retention_days"`
	DeletionAlertThreshold int64  `koanf:"deletion_alert_threshold"`
	ScoringProfile         string `koanf:"scoring_profile"`
	ScoringProfileDir      string `koanf:"scoring_profile_dir"`
	WorkerCount            int    `koanf:"worker_count"`
}

// JobsConfig holds the cron specs for the two scheduled jobs. Defaults mirror
// the production schedule: aggregation daily at 02:00, sweep Sundays at 03:00.
type JobsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AggregateSpec string `koanf:"aggregate_spec"`
	SweepSpec     string `koanf:"sweep_spec"`
}

// AdsConfig holds ad-selection defaults.
type AdsConfig struct {
	DefaultStrategy string `koanf:"default_strategy"` // priority | weighted_random
}

// Strategy names accepted by the ad selector.
const (
	StrategyPriority       = "priority"
	StrategyWeightedRandom = "weighted_random"
)

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if c.Database.Type != "" && c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if c.Analytics.WindowDays <= 0 {
		return fmt.Errorf("analytics.window_days must be > 0")
	}
	if c.Analytics.RetentionDays <= 0 {
		return fmt.Errorf("analytics.retention_days must be > 0")
	}
	if c.Analytics.RetentionDays < c.Analytics.WindowDays {
		return fmt.Errorf("analytics.retention_days (%d) must not be shorter than analytics.window_days (%d)",
			c.Analytics.RetentionDays, c.Analytics.WindowDays)
	}
	if c.Analytics.DeletionAlertThreshold <= 0 {
		return fmt.Errorf("analytics.deletion_alert_threshold must be > 0")
	}
	if strings.TrimSpace(c.Analytics.ScoringProfile) == "" {
		return fmt.Errorf("analytics.scoring_profile is required")
	}
	if c.Analytics.WorkerCount <= 0 {
		return fmt.Errorf("analytics.worker_count must be > 0")
	}

	if _, err := cron.ParseStandard(c.Jobs.AggregateSpec); err != nil {
		return fmt.Errorf("invalid jobs.aggregate_spec %q: %w", c.Jobs.AggregateSpec, err)
	}
	if _, err := cron.ParseStandard(c.Jobs.SweepSpec); err != nil {
		return fmt.Errorf("invalid jobs.sweep_spec %q: %w", c.Jobs.SweepSpec, err)
	}

	if c.Ads.DefaultStrategy != StrategyPriority && c.Ads.DefaultStrategy != StrategyWeightedRandom {
		return fmt.Errorf("invalid ads.default_strategy %q", c.Ads.DefaultStrategy)
	}

	return nil
}

// Load parses configuration from the given file path (optional) and
// environment variables, then validates it.
//
// Environment overrides use the TOOLRADAR_ prefix with __ as the nesting
// separator: TOOLRADAR_SERVER__PORT=9090 overrides server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                        8080,
		"server.host":                        "0.0.0.0",
		"server.max_body_size_mb":            1,
		"server.mode":                        "release",
		"database.type":                      "postgres",
		"database.dsn":                       "",
		"database.max_open_conns":            25,
		"database.max_idle_conns":            25,
		"database.auto_migrate":              true,
		"analytics.window_days":              7,
		"analytics.retention_days":           30,
		"analytics.deletion_alert_threshold": 100000,
		"analytics.scoring_profile":          scoring.ProfileStandard,
		"analytics.scoring_profile_dir":      "",
		"analytics.worker_count":             8,
		"jobs.enabled":                       true,
		"jobs.aggregate_spec":                "0 2 * * *",
		"jobs.sweep_spec":                    "0 3 * * 0",
		"ads.default_strategy":               StrategyWeightedRandom,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("TOOLRADAR_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TOOLRADAR_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
