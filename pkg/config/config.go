package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/ratelimit"
)

// Config represents the application configuration
type Config struct {
	// Interval is the pause between the end of a cycle and the next one
	Interval    time.Duration           `yaml:"interval"`
	Comparison  models.ComparisonMethod `yaml:"comparison"`
	MTimeWindow time.Duration           `yaml:"mtime_window"`
	Exclude     []string                `yaml:"exclude"`
	Pairs       []PairConfig            `yaml:"pairs,omitempty"`
	Performance PerformanceConfig       `yaml:"performance"`
	Output      OutputConfig            `yaml:"output"`
	Logging     LoggingConfig           `yaml:"logging"`
}

// PairConfig is one source/replica pair mirrored by `foldermirror run`
type PairConfig struct {
	Source  string `yaml:"source"`
	Replica string `yaml:"replica"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	BufferSize int `yaml:"buffer_size"`
	// BandwidthLimit accepts "10MB", "512KiB/s" or a plain byte count
	BandwidthLimit string `yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human", "json", "progress" or "none"
	Progress bool   `yaml:"progress"` // Show progress bars on a terminal
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	File       string `yaml:"file"`   // Log file path (empty = no file log)
	Format     string `yaml:"format"` // "text" or "json"
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	Console    bool   `yaml:"console"`
	MaxSize    int64  `yaml:"max_size"` // bytes before rotation, 0 = never
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Interval:   600 * time.Second,
		Comparison: models.CompareShallow,
		Exclude:    []string{},
		Performance: PerformanceConfig{
			BufferSize: 65536,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			File:       "sync_log.txt",
			Format:     "text",
			Level:      "info",
			Console:    true,
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 5,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return &models.ValidationError{
			Field:   "interval",
			Message: "must be positive",
		}
	}

	if _, err := models.ParseComparisonMethod(string(c.Comparison)); err != nil {
		return err
	}

	if c.MTimeWindow < 0 {
		return &models.ValidationError{
			Field:   "mtime_window",
			Message: "must not be negative",
		}
	}

	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "performance.buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if _, err := ratelimit.ParseRate(c.Performance.BandwidthLimit); err != nil {
		return &models.ValidationError{
			Field:   "performance.bandwidth_limit",
			Message: err.Error(),
		}
	}

	validFormats := map[string]bool{"human": true, "json": true, "progress": true, "none": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human', 'json', 'progress' or 'none'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{
			Field:   "logging",
			Message: "max_size and max_backups must not be negative",
		}
	}

	for i, p := range c.Pairs {
		if strings.TrimSpace(p.Source) == "" || strings.TrimSpace(p.Replica) == "" {
			return &models.ValidationError{
				Field:   fmt.Sprintf("pairs[%d]", i),
				Message: "source and replica are required",
			}
		}
	}

	return nil
}

// Operation builds the mirror operation for one pair from the configuration
func (c *Config) Operation(source, replica string, dryRun bool) (*models.MirrorOperation, error) {
	limit, err := ratelimit.ParseRate(c.Performance.BandwidthLimit)
	if err != nil {
		return nil, err
	}

	operation := &models.MirrorOperation{
		SourcePath:       source,
		ReplicaPath:      replica,
		ComparisonMethod: c.Comparison,
		ModTimeWindow:    c.MTimeWindow,
		ExcludePatterns:  c.Exclude,
		DryRun:           dryRun,
		BandwidthLimit:   limit,
		BufferSize:       c.Performance.BufferSize,
		Interval:         c.Interval,
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}
