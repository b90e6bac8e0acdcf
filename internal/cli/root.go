package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the foldermirror command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "foldermirror",
		Short: "One-way folder mirroring",
		Long: `foldermirror keeps a replica folder identical to a source folder.
Files and directories missing from the replica are copied, changed files are
replaced and anything the source no longer has is removed from the replica.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", moduleVersion(), Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewOnceCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
