package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/foldermirror/internal/platform"
	"github.com/sdejongh/foldermirror/pkg/output"
)

var onceFlags MirrorFlags

// NewOnceCommand creates the once command
func NewOnceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once SOURCE REPLICA",
		Short: "Run a single synchronization",
		Long: `Run exactly one synchronization of SOURCE into REPLICA and exit.

Exit codes: 0 success, 1 some entries failed, 2 the synchronization failed,
3 interrupted.`,
		Args: cobra.ExactArgs(2),
		RunE: runOnce,
	}

	addMirrorFlags(cmd, &onceFlags)
	cmd.Flags().StringVar(&onceFlags.Report, "report", "", "write the cycle report to file")
	cmd.Flags().StringVar(&onceFlags.ReportFormat, "report-format", "human", "cycle report format: human, json")

	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyFlagsToConfig(cmd, cfg, &onceFlags); err != nil {
		return err
	}

	source, replica, err := platform.ValidatePair(args[0], args[1])
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	formatter, err := newFormatter(cfg, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}

	engine, err := newEngine(cfg, source, replica, onceFlags.DryRun, formatter, logger)
	if err != nil {
		return err
	}

	report, runErr := engine.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		formatter.Error(runErr)
	}

	if onceFlags.Report != "" {
		if err := output.WriteCycleReport(report, onceFlags.Report, onceFlags.ReportFormat); err != nil {
			return fmt.Errorf("failed to write cycle report: %w", err)
		}
	}

	if code := report.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code, Err: runErr}
	}
	return nil
}
