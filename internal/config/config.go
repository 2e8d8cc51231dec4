// Package config loads the workflow engine's recognised configuration
// options via viper: environment variables first, an optional config file
// second, and documented defaults otherwise.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every option named in the external-interfaces contract.
type Config struct {
	DatabaseURL           string   `mapstructure:"database_url"`
	PassThresholdDefault  int      `mapstructure:"pass_threshold_default"`
	WorkerPollIntervalMS  int      `mapstructure:"worker_poll_interval_ms"`
	RetryMaxAttempts      int      `mapstructure:"retry_max_attempts"`
	RetryBaseBackoffMS    int      `mapstructure:"retry_base_backoff_ms"`
	WorkerConcurrency     int      `mapstructure:"worker_concurrency"`
	StagesEnabled         []string `mapstructure:"stages_enabled"`
	IdeaSourceBaseURL     string   `mapstructure:"idea_source_base_url"`
	LogMode               string   `mapstructure:"log_mode"`
	StageManifestPath     string   `mapstructure:"stage_manifest_path"`

	// StageThresholds is populated by Load from StageManifestPath, not by
	// viper -- it is a nested YAML document, not a flat key.
	StageThresholds map[string]int `mapstructure:"-"`
}

// Load builds a Config from environment variables (preferred, STORYFORGE_
// prefixed) falling back to an optional config file at path (may be
// empty, in which case only env vars and defaults apply).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STORYFORGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("database_url", "")
	v.SetDefault("pass_threshold_default", 75)
	v.SetDefault("worker_poll_interval_ms", 2000)
	v.SetDefault("retry_max_attempts", 5)
	v.SetDefault("retry_base_backoff_ms", 250)
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("stages_enabled", []string{})
	v.SetDefault("idea_source_base_url", "")
	v.SetDefault("log_mode", "development")
	v.SetDefault("stage_manifest_path", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("config: database_url is required (set STORYFORGE_DATABASE_URL)")
	}

	thresholds, err := LoadStageManifest(cfg.StageManifestPath)
	if err != nil {
		return nil, err
	}
	cfg.StageThresholds = thresholds

	return &cfg, nil
}

// StageEnabled reports whether stage may be scheduled, per stages_enabled
// (an empty list means "all stages").
func (c *Config) StageEnabled(stage string) bool {
	if len(c.StagesEnabled) == 0 {
		return true
	}
	for _, s := range c.StagesEnabled {
		if s == stage {
			return true
		}
	}
	return false
}
