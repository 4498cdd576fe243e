// Package config holds the harvester configuration: rate-limiter timing,
// retry policy, pagination bounds, batch sizes and filesystem locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full harvester configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Timing   TimingConfig   `yaml:"timing"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Paths    PathsConfig    `yaml:"paths"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// TimingConfig holds the adaptive rate-limiter policy.
type TimingConfig struct {
	MinDelay       float64 `yaml:"min_delay"`       // seconds, lower bound of the jitter band
	MaxDelay       float64 `yaml:"max_delay"`       // seconds, jitter ceiling until backoff exceeds it
	BackoffFactor  float64 `yaml:"backoff_factor"`  // multiplier after a challenge
	RecoveryFactor float64 `yaml:"recovery_factor"` // multiplier after a success
	MaxBackoff     float64 `yaml:"max_backoff"`     // seconds, delay cap
}

// FetchConfig holds the per-request bounds of the browser transport.
type FetchConfig struct {
	PageLoadWait    float64 `yaml:"page_load_wait"`    // seconds to let the page settle
	ChallengeWait   float64 `yaml:"challenge_wait"`    // seconds before the re-extraction attempt
	MaxRetries      int     `yaml:"max_retries"`       // per-fetch retry bound
	MinContentChars int     `yaml:"min_content_chars"` // below this the page is a challenge
}

// PipelineConfig holds pagination bounds and per-stage batch limits.
type PipelineConfig struct {
	MaxOffset            int `yaml:"max_offset"`
	ResultsPerPage       int `yaml:"results_per_page"`
	OverviewBatchSize    int `yaml:"overview_batch_size"`
	MapStatsBatchSize    int `yaml:"map_stats_batch_size"`
	PerfEconomyBatchSize int `yaml:"perf_economy_batch_size"`
}

// PathsConfig holds the filesystem locations of the store and the archive.
type PathsConfig struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	base := filepath.Join(userHome(), ".hltvharvest")
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Timing: TimingConfig{
			MinDelay:       3.0,
			MaxDelay:       8.0,
			BackoffFactor:  2.0,
			RecoveryFactor: 0.95,
			MaxBackoff:     120.0,
		},
		Fetch: FetchConfig{
			PageLoadWait:    6.0,
			ChallengeWait:   10.0,
			MaxRetries:      5,
			MinContentChars: 10000,
		},
		Pipeline: PipelineConfig{
			MaxOffset:            9900,
			ResultsPerPage:       100,
			OverviewBatchSize:    10,
			MapStatsBatchSize:    10,
			PerfEconomyBatchSize: 10,
		},
		Paths: PathsConfig{
			DataDir: filepath.Join(base, "data"),
			DBPath:  filepath.Join(base, "hltv.db"),
		},
	}
}

// Load reads the YAML config at path, layered over the defaults. A missing
// file is not an error: the defaults are returned as-is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = filepath.Join(userHome(), ".hltvharvest", "config.yaml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Timing.MinDelay <= 0 {
		return fmt.Errorf("timing.min_delay must be positive")
	}
	if c.Timing.MaxDelay < c.Timing.MinDelay {
		return fmt.Errorf("timing.max_delay must be >= timing.min_delay")
	}
	if c.Timing.BackoffFactor <= 1.0 {
		return fmt.Errorf("timing.backoff_factor must be > 1.0")
	}
	if c.Timing.RecoveryFactor <= 0 || c.Timing.RecoveryFactor > 1.0 {
		return fmt.Errorf("timing.recovery_factor must be in (0, 1]")
	}
	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("fetch.max_retries must be at least 1")
	}
	if c.Fetch.MinContentChars < 1 {
		return fmt.Errorf("fetch.min_content_chars must be positive")
	}
	if c.Pipeline.ResultsPerPage < 1 {
		return fmt.Errorf("pipeline.results_per_page must be positive")
	}
	if c.Pipeline.MaxOffset < 0 {
		return fmt.Errorf("pipeline.max_offset must be non-negative")
	}
	for name, v := range map[string]int{
		"overview_batch_size":     c.Pipeline.OverviewBatchSize,
		"map_stats_batch_size":    c.Pipeline.MapStatsBatchSize,
		"perf_economy_batch_size": c.Pipeline.PerfEconomyBatchSize,
	} {
		if v < 1 {
			return fmt.Errorf("pipeline.%s must be at least 1", name)
		}
	}
	if c.Paths.DBPath == "" {
		return fmt.Errorf("paths.db_path is required")
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	return nil
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
