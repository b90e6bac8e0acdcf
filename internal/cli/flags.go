package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds the flags every command accepts
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags registers the persistent flags on the root command
func AddGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&globalFlags.ConfigFile, "config", "", "config file (default is $XDG_CONFIG_HOME/foldermirror/config.yaml)")
	pf.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "log debug messages")
	pf.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "only report errors")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// MirrorFlags holds the flags shared by the run and once commands
type MirrorFlags struct {
	Interval     int
	LogFile      string
	LogFormat    string
	LogLevel     string
	Comparison   string
	Exclude      []string
	Bandwidth    string
	DryRun       bool
	Output       string
	Report       string
	ReportFormat string
}

// addMirrorFlags registers the flags that override the config file.
// Defaults mirror config.Default; only flags set explicitly are applied.
func addMirrorFlags(cmd *cobra.Command, f *MirrorFlags) {
	cmd.Flags().StringVarP(&f.LogFile, "log", "l", "sync_log.txt", "log file path (empty disables the file log)")
	cmd.Flags().StringVar(&f.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.Comparison, "comparison", "shallow", "comparison method: shallow, metadata, size, content")
	cmd.Flags().StringSliceVar(&f.Exclude, "exclude", []string{}, "glob patterns to exclude (e.g. \"*.tmp\", \".git/\")")
	cmd.Flags().StringVarP(&f.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g. \"10MB\", \"512KiB\")")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "report what would change without touching the replica")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "human", "output format: human, json, progress, none")
}
