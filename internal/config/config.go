package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProfileConfig locates the recorded workload profile
type ProfileConfig struct {
	Path       string `yaml:"path"`
	SectorSize uint64 `yaml:"sector_size"`
}

// PermuteConfig controls the enumeration run
type PermuteConfig struct {
	// Mode selects epoch segmentation: "flag" or "soft"
	Mode string `yaml:"mode"`
	// Granularity selects crash-state granularity: "op" or "sector"
	Granularity string `yaml:"granularity"`
	// States is the number of distinct crash states requested per job
	States int `yaml:"states"`
	// Jobs is the number of independent enumeration jobs; each job gets
	// its own permuter instance and a derived seed
	Jobs int `yaml:"jobs"`
	// Seed is the base RNG seed
	Seed int64 `yaml:"seed"`
	// OutputPath receives the JSON summary of generated states
	OutputPath string `yaml:"output_path"`
}

// WorkersConfig holds worker pool configuration
type WorkersConfig struct {
	MaxWorkers int `yaml:"max_workers"`
	QueueSize  int `yaml:"queue_size"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the complete configuration for the permuter harness
type Config struct {
	Profile ProfileConfig `yaml:"profile"`
	Permute PermuteConfig `yaml:"permute"`
	Workers WorkersConfig `yaml:"workers"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Profile.SectorSize == 0 {
		cfg.Profile.SectorSize = 512
	}

	if cfg.Permute.Mode == "" {
		cfg.Permute.Mode = "flag"
	}
	if cfg.Permute.Granularity == "" {
		cfg.Permute.Granularity = "op"
	}
	if cfg.Permute.States == 0 {
		cfg.Permute.States = 1000
	}
	if cfg.Permute.Jobs == 0 {
		cfg.Permute.Jobs = 1
	}
	if cfg.Permute.Seed == 0 {
		cfg.Permute.Seed = 1
	}
	if cfg.Permute.OutputPath == "" {
		cfg.Permute.OutputPath = "./crash_states.json"
	}

	if cfg.Workers.MaxWorkers == 0 {
		cfg.Workers.MaxWorkers = 4
	}
	if cfg.Workers.QueueSize == 0 {
		cfg.Workers.QueueSize = 64
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9190
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Profile.Path == "" {
		return fmt.Errorf("profile.path is required")
	}
	if c.Profile.SectorSize == 0 {
		return fmt.Errorf("profile.sector_size must be positive")
	}
	if c.Permute.Mode != "flag" && c.Permute.Mode != "soft" {
		return fmt.Errorf("permute.mode must be \"flag\" or \"soft\"")
	}
	if c.Permute.Granularity != "op" && c.Permute.Granularity != "sector" {
		return fmt.Errorf("permute.granularity must be \"op\" or \"sector\"")
	}
	if c.Permute.States < 1 {
		return fmt.Errorf("permute.states must be positive")
	}
	if c.Permute.Jobs < 1 {
		return fmt.Errorf("permute.jobs must be positive")
	}
	return nil
}
