package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build information, set via ldflags by the release build
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// moduleVersion falls back to the module version recorded by `go install`
// when the binary was built without ldflags
func moduleVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func printVersion(w io.Writer) {
	rows := [][2]string{
		{"Commit", Commit},
		{"Built", BuildDate},
		{"Go version", runtime.Version()},
		{"OS/Arch", runtime.GOOS + "/" + runtime.GOARCH},
	}

	fmt.Fprintf(w, "foldermirror %s\n", moduleVersion())
	for _, row := range rows {
		fmt.Fprintf(w, "  %-11s %s\n", row[0]+":", row[1])
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), moduleVersion())
				return
			}
			printVersion(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")

	return cmd
}
