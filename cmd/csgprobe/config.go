package main

import (
	"fmt"
	"os"

	"github.com/soypat/csg/logging"
	"gopkg.in/yaml.v3"
)

// Config holds csgprobe settings.
type Config struct {
	Logging logging.Config `yaml:"logging"`
	Query   QueryConfig    `yaml:"query"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Output  OutputConfig   `yaml:"output"`
}

// QueryConfig holds shape query settings.
type QueryConfig struct {
	// Tolerance passed to every query, zero for the shape skin.
	Tolerance float64 `yaml:"tolerance"`
	// MaxInterceptSteps overrides the composites step cap, zero keeps the scene value.
	MaxInterceptSteps int `yaml:"max_intercept_steps"`
}

// MetricsConfig holds the Prometheus textfile output.
type MetricsConfig struct {
	File string `yaml:"file"` // Empty disables metrics
}

// OutputConfig holds result formatting settings.
type OutputConfig struct {
	JSON bool `yaml:"json"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Logging: logging.Config{
			Level:   "warn",
			Console: true,
		},
	}
}

// LoadConfig loads configuration with priority: defaults < file. An empty
// path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}
