package config

import (
	"fmt"
	"time"
)

// ExecutionConfig bounds batch execution.
type ExecutionConfig struct {
	// HandlerTimeout bounds one handler call; on expiry the instruction
	// fails with "timeout" and the batch proceeds.
	HandlerTimeout string `yaml:"handler_timeout"`

	// MaxBatchSize caps how many records one ingest may carry.
	MaxBatchSize int `yaml:"max_batch_size"`
}

func (c *ExecutionConfig) applyDefaults() {
	if c.HandlerTimeout == "" {
		c.HandlerTimeout = "10s"
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 100
	}
}

func (c *ExecutionConfig) validate() error {
	if _, err := time.ParseDuration(c.HandlerTimeout); err != nil {
		return fmt.Errorf("invalid execution.handler_timeout %q: %w", c.HandlerTimeout, err)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("execution.max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	return nil
}

// HandlerTimeoutDuration returns the parsed handler timeout.
func (c *ExecutionConfig) HandlerTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.HandlerTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
