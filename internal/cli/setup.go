package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/foldermirror/pkg/compare"
	"github.com/sdejongh/foldermirror/pkg/config"
	"github.com/sdejongh/foldermirror/pkg/logging"
	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/output"
	"github.com/sdejongh/foldermirror/pkg/storage"
	"github.com/sdejongh/foldermirror/pkg/sync"
)

// ExitError carries a process exit code out of a command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyFlagsToConfig overrides config values with the flags given on the
// command line, then validates the result
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config, f *MirrorFlags) error {
	flags := cmd.Flags()

	if flags.Changed("interval") {
		cfg.Interval = time.Duration(f.Interval) * time.Second
	}
	if flags.Changed("comparison") {
		cfg.Comparison = models.ComparisonMethod(f.Comparison)
	}
	if flags.Changed("exclude") {
		cfg.Exclude = f.Exclude
	}
	if flags.Changed("bandwidth") {
		cfg.Performance.BandwidthLimit = f.Bandwidth
	}
	if flags.Changed("output") {
		cfg.Output.Format = f.Output
	}
	if flags.Changed("log") {
		cfg.Logging.File = f.LogFile
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = f.LogFormat
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = f.LogLevel
	}

	if globalFlags.Verbose {
		cfg.Logging.Level = "debug"
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
		cfg.Output.Progress = false
	}

	return cfg.Validate()
}

// newLogger builds the console and file loggers the configuration asks for
func newLogger(cfg *config.Config, console io.Writer) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)

	var loggers []logging.Logger
	if cfg.Logging.Console {
		consoleLevel := level
		if cfg.Output.Quiet {
			consoleLevel = logging.ErrorLevel
		}
		loggers = append(loggers, logging.NewConsoleLogger(console, consoleLevel))
	}

	if cfg.Logging.File != "" {
		format := logging.FormatText
		if cfg.Logging.Format == "json" {
			format = logging.FormatJSON
		}

		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      level,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		loggers = append(loggers, fileLogger)
	}

	if len(loggers) == 0 {
		return logging.NewNullLogger(), nil
	}
	return logging.NewMultiLogger(loggers...), nil
}

// newFormatter picks the cycle output. Progress bars are only drawn for a
// single pair, since concurrent pairs would fight over the terminal.
func newFormatter(cfg *config.Config, w io.Writer, shared bool) (output.Formatter, error) {
	name := cfg.Output.Format
	switch {
	case cfg.Output.Quiet:
		name = "none"
	case name == "progress" && shared:
		name = "human"
	case name == "human" && cfg.Output.Progress && !shared:
		name = "progress"
	}
	return output.New(name, w)
}

// newEngine wires the backends and comparator for one pair
func newEngine(cfg *config.Config, source, replica string, dryRun bool, formatter output.Formatter, logger logging.Logger) (*sync.Engine, error) {
	operation, err := cfg.Operation(source, replica, dryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror operation: %w", err)
	}

	src, err := storage.NewLocal(operation.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create source backend: %w", err)
	}

	dst, err := storage.NewLocal(operation.ReplicaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create replica backend: %w", err)
	}

	comparator, err := compare.New(operation.ComparisonMethod, compare.Options{
		ModTimeWindow: operation.ModTimeWindow,
		BufferSize:    operation.BufferSize,
	})
	if err != nil {
		return nil, err
	}

	return sync.NewEngine(src, dst, comparator, formatter, logger, operation)
}
