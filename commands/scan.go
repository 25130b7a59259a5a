package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/c360studio/conceptpipe/config"
	"github.com/c360studio/conceptpipe/locator"
)

// newScanCmd builds the scan subcommand: a locate-only dry run.
func newScanCmd(root *rootOptions) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "List the sources a run would process, without processing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			opts := locator.DefaultScanOptions()
			opts.Recursive = cfg.Sources.Recursive || recursive
			opts.FollowSymlinks = cfg.Sources.FollowSymlinks
			if len(cfg.Sources.Extensions) > 0 {
				opts.Extensions = cfg.Sources.Extensions
			}
			if len(cfg.Sources.IgnorePatterns) > 0 {
				opts.IgnorePatterns = cfg.Sources.IgnorePatterns
			}

			result, err := locator.New(opts, locator.WithLogger(root.newLogger())).Scan(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, src := range result.Accepted {
				fmt.Fprintf(out, "accept  %s (%d bytes)\n", src.Path, src.Size)
			}
			for _, path := range result.Ignored {
				fmt.Fprintf(out, "ignore  %s\n", path)
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warn    %s\n", w)
			}
			fmt.Fprintf(out, "%d accepted, %d ignored\n", len(result.Accepted), len(result.Ignored))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Scan subdirectories")
	return cmd
}
