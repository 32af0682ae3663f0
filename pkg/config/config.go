// Package config loads engine configuration from a YAML file merged with
// environment variables (envdecode + godotenv + yaml.v3).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CacheConfig holds the cache settings read from configuration. The cache
// package uses its own DefaultTTL, SweepInterval and DependencyGraphTTL
// constants and does not read these values.
type CacheConfig struct {
	DefaultTTLSeconds      int `yaml:"default_ttl_seconds" env:"CACHE_DEFAULT_TTL_SECONDS"`
	SweepIntervalSeconds   int `yaml:"sweep_interval_seconds" env:"CACHE_SWEEP_INTERVAL_SECONDS"`
	DependencyGraphTTLSecs int `yaml:"dependency_graph_ttl_seconds" env:"CACHE_DEPENDENCY_GRAPH_TTL_SECONDS"`
}

// PropagationConfig holds the propagation engine's recognized options as
// read from configuration. The engines built by the risk aggregator use
// fixed settings and do not read these values.
type PropagationConfig struct {
	MaxDepth        int     `yaml:"max_depth" env:"PROPAGATION_MAX_DEPTH"`
	ImpactThreshold float64 `yaml:"impact_threshold" env:"PROPAGATION_IMPACT_THRESHOLD"`
	IncludeIndirect bool    `yaml:"include_indirect" env:"PROPAGATION_INCLUDE_INDIRECT"`
	InitialImpact   float64 `yaml:"initial_impact" env:"PROPAGATION_INITIAL_IMPACT"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// SchedulerConfig controls the periodic risk recalculation sweep
// (cmd/riskgraphd).
type SchedulerConfig struct {
	CronSpec string `yaml:"cron_spec" env:"SCHEDULER_CRON_SPEC"`
}

// Config is the top-level configuration structure.
type Config struct {
	Cache       CacheConfig       `yaml:"cache"`
	Propagation PropagationConfig `yaml:"propagation"`
	Logging     LoggingConfig     `yaml:"logging"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
}

// New returns configuration populated with the engine's documented defaults.
func New() *Config {
	return &Config{
		Cache: CacheConfig{
			DefaultTTLSeconds:      30 * 60,
			SweepIntervalSeconds:   5 * 60,
			DependencyGraphTTLSecs: 60 * 60,
		},
		Propagation: PropagationConfig{
			MaxDepth:        10,
			ImpactThreshold: 0.01,
			IncludeIndirect: true,
			InitialImpact:   1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Scheduler: SchedulerConfig{
			CronSpec: "0 */15 * * * *",
		},
	}
}

// Load starts from New's defaults, overlays an optional YAML file
// (CONFIG_FILE, default configs/config.yaml), then overlays environment
// variables. Variables from an optional .env file are loaded into the
// environment first without replacing variables already set, so they too
// take precedence over the YAML file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/config.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	if c == nil {
		return
	}
	if c.Propagation.MaxDepth <= 0 {
		c.Propagation.MaxDepth = 10
	}
	if c.Propagation.MaxDepth > 20 {
		c.Propagation.MaxDepth = 20
	}
	if c.Cache.DefaultTTLSeconds <= 0 {
		c.Cache.DefaultTTLSeconds = 30 * 60
	}
	if c.Cache.SweepIntervalSeconds <= 0 {
		c.Cache.SweepIntervalSeconds = 5 * 60
	}
	if c.Cache.DependencyGraphTTLSecs <= 0 {
		c.Cache.DependencyGraphTTLSecs = 60 * 60
	}
}
