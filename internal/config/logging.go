package config

import (
	"fmt"

	"profilescale/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error; empty means info
	JSONFormat bool   `yaml:"json_format"`
}

// validate accepts exactly the levels logging.New accepts.
func (c *LoggingConfig) validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	return nil
}
