// Package config loads PowerPilot configuration from
// <workspace>/.powerpilot/config.yaml. A missing file yields defaults;
// a malformed file is an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all PowerPilot configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Execution ExecutionConfig `yaml:"execution"`
	Platform  PlatformConfig  `yaml:"platform"`
	History   HistoryConfig   `yaml:"history"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HistoryConfig configures the outcome recorder.
type HistoryConfig struct {
	// DatabasePath is the SQLite file, relative to the workspace when
	// not absolute.
	DatabasePath string `yaml:"database_path"`
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".powerpilot", "config.yaml")
}

// Load reads the config for a workspace, applying defaults. The file is
// optional.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Name:    "powerpilot",
		Version: "1.0",
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	c.Execution.applyDefaults()
	c.Platform.applyDefaults()
	c.Server.applyDefaults()
	if c.History.DatabasePath == "" {
		c.History.DatabasePath = filepath.Join(".powerpilot", "history.db")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Execution.validate(); err != nil {
		return err
	}
	return c.Platform.validate()
}

// DatabasePath resolves the history database location against the
// workspace.
func (c *Config) DatabasePath(workspace string) string {
	if filepath.IsAbs(c.History.DatabasePath) {
		return c.History.DatabasePath
	}
	return filepath.Join(workspace, c.History.DatabasePath)
}
