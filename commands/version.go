package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// newVersionCmd builds the version subcommand.
func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "conceptpipe version %s (%s/%s)\n",
				version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
