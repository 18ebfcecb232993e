package config

import (
	"fmt"
	"time"
)

// PlatformConfig configures the OS bridge.
type PlatformConfig struct {
	// ProbePackage is the always-present package used as the subject of
	// read-only mechanism checks.
	ProbePackage string `yaml:"probe_package"`

	// CommandTimeout bounds each individual shell call.
	CommandTimeout string `yaml:"command_timeout"`

	// GrantsPath is the permission grants file dropped by the external
	// permission flow, relative to the workspace when not absolute.
	GrantsPath string `yaml:"grants_path"`
}

func (c *PlatformConfig) applyDefaults() {
	if c.ProbePackage == "" {
		c.ProbePackage = "android"
	}
	if c.CommandTimeout == "" {
		c.CommandTimeout = "10s"
	}
	if c.GrantsPath == "" {
		c.GrantsPath = ".powerpilot/grants.json"
	}
}

func (c *PlatformConfig) validate() error {
	if _, err := time.ParseDuration(c.CommandTimeout); err != nil {
		return fmt.Errorf("invalid platform.command_timeout %q: %w", c.CommandTimeout, err)
	}
	return nil
}

// CommandTimeoutDuration returns the parsed shell-call timeout.
func (c *PlatformConfig) CommandTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.CommandTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
