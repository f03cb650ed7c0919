package config

import "fmt"

// ExecutionConfig controls how files are processed.
type ExecutionConfig struct {
	// Parallel processes files concurrently, at most Workers at a time.
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"`

	// KeepGoing processes every file even after one fails.
	KeepGoing bool `yaml:"keep_going"`
}

func (c *ExecutionConfig) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("execution.workers must not be negative, got %d", c.Workers)
	}
	return nil
}
