package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/foldermirror/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the foldermirror configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			bandwidth := "unlimited"
			if cfg.Performance.BandwidthLimit != "" {
				bandwidth = cfg.Performance.BandwidthLimit
			}

			fmt.Fprintf(w, "Interval: %s\n", cfg.Interval)
			fmt.Fprintf(w, "Comparison: %s\n", cfg.Comparison)
			fmt.Fprintf(w, "Mtime Window: %s\n", cfg.MTimeWindow)
			fmt.Fprintf(w, "Exclude: %s\n", strings.Join(cfg.Exclude, ", "))
			fmt.Fprintf(w, "Buffer Size: %s\n", humanize.IBytes(uint64(cfg.Performance.BufferSize)))
			fmt.Fprintf(w, "Bandwidth: %s\n", bandwidth)
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Log File: %s\n", cfg.Logging.File)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)
			for _, p := range cfg.Pairs {
				fmt.Fprintf(w, "Pair: %s -> %s\n", p.Source, p.Replica)
			}

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if !force {
				if _, err := config.LoadFromFile(path); err == nil {
					return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
				}
			}

			if err := config.SaveToFile(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}
