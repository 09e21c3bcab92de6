package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Workspace struct {
		Root    string   `yaml:"root"`
		Exclude []string `yaml:"exclude"`
	} `yaml:"workspace"`
	Fix struct {
		Mode          string   `yaml:"mode"` // sequential, parallel or fixall
		Diagnostics   []string `yaml:"diagnostics"`
		Jobs          int      `yaml:"jobs"`
		MaxIterations int      `yaml:"max_iterations"`
	} `yaml:"fix"`
	Journal struct {
		Path    string `yaml:"path"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"journal"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Workspace.Root = "."
	cfg.Fix.Mode = "sequential"
	cfg.Fix.Jobs = 4
	cfg.Fix.MaxIterations = 500
	cfg.Journal.Path = ".avport/journal.db"
	cfg.Journal.Enabled = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return &cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if level := os.Getenv("AVPORT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("AVPORT_MODE"); mode != "" {
		cfg.Fix.Mode = mode
	}
	if journal := os.Getenv("AVPORT_JOURNAL"); journal != "" {
		switch strings.ToLower(journal) {
		case "off", "false", "0":
			cfg.Journal.Enabled = false
		default:
			cfg.Journal.Path = journal
			cfg.Journal.Enabled = true
		}
	}
	if jobs := os.Getenv("AVPORT_JOBS"); jobs != "" {
		n, err := strconv.Atoi(jobs)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid AVPORT_JOBS %q", jobs)
		}
		cfg.Fix.Jobs = n
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Fix.Mode {
	case "sequential", "parallel", "fixall":
	default:
		return fmt.Errorf("unknown fix mode %q", c.Fix.Mode)
	}
	if c.Fix.Jobs < 1 {
		return fmt.Errorf("fix.jobs must be positive, got %d", c.Fix.Jobs)
	}
	if c.Fix.MaxIterations < 1 {
		return fmt.Errorf("fix.max_iterations must be positive, got %d", c.Fix.MaxIterations)
	}
	return nil
}
