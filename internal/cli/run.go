package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/foldermirror/internal/platform"
	"github.com/sdejongh/foldermirror/pkg/config"
	"github.com/sdejongh/foldermirror/pkg/logging"
	"github.com/sdejongh/foldermirror/pkg/sync"
)

var runFlags MirrorFlags

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [SOURCE REPLICA]",
		Short: "Mirror a folder periodically",
		Long: `Keep REPLICA an exact copy of SOURCE, repeating the synchronization
every interval until interrupted.

Without arguments, every pair listed in the config file is mirrored concurrently.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected SOURCE and REPLICA, or no arguments to use the configured pairs")
			}
			return nil
		},
		RunE: runRun,
	}

	cmd.Flags().IntVarP(&runFlags.Interval, "interval", "i", 600, "seconds to wait between synchronizations")
	addMirrorFlags(cmd, &runFlags)

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyFlagsToConfig(cmd, cfg, &runFlags); err != nil {
		return err
	}

	pairs := cfg.Pairs
	if len(args) == 2 {
		pairs = []config.PairConfig{{Source: args[0], Replica: args[1]}}
	}
	if len(pairs) == 0 {
		return fmt.Errorf("nothing to mirror: pass SOURCE and REPLICA or list pairs in the config file")
	}

	// Validate every pair before starting any of them
	for i, p := range pairs {
		src, dst, err := platform.ValidatePair(p.Source, p.Replica)
		if err != nil {
			return err
		}
		pairs[i] = config.PairConfig{Source: src, Replica: dst}
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Close()

	shared := len(pairs) > 1
	schedulers := make([]*sync.Scheduler, 0, len(pairs))

	for i, p := range pairs {
		pairLogger := logger
		if shared {
			pairLogger = logger.WithFields(logging.Fields{"pair": i + 1})
		}

		formatter, err := newFormatter(cfg, cmd.OutOrStdout(), shared)
		if err != nil {
			return err
		}

		engine, err := newEngine(cfg, p.Source, p.Replica, runFlags.DryRun, formatter, pairLogger)
		if err != nil {
			return err
		}

		pairLogger.Info(ctx, fmt.Sprintf("Starting folder synchronization: %s -> %s", p.Source, p.Replica), nil)
		pairLogger.Info(ctx, fmt.Sprintf("Sync interval: %d seconds", int(cfg.Interval.Seconds())), nil)

		schedulers = append(schedulers, sync.NewScheduler(engine, cfg.Interval, pairLogger, formatter))
	}

	return sync.RunPairs(ctx, schedulers...)
}
