package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/conceptpipe/batch"
	"github.com/c360studio/conceptpipe/config"
)

// newRunCmd builds the run subcommand: the full batch over a file,
// directory, or inline text blob.
func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		text      string
		outputDir string
		workers   int
		mode      string
	)

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Process concept sources through the expansion pipeline",
		Long: `Run scans the given file or directory, extracts one work item per
data row, expands each through the configured model endpoint, and
writes one JSON document per item plus a run-level index.

With --text, the argument is skipped and the inline blob is processed
as a single-row source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 0 {
				return fmt.Errorf("either a path argument or --text is required")
			}

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			if workers > 0 {
				cfg.Processing.Workers = workers
			}
			if mode != "" {
				cfg.Errors.Mode = mode
			}

			logger := root.newLogger()
			orch, err := buildOrchestrator(cfg, logger, progressPrinter(cmd))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var result *batch.Result
			if text != "" {
				result = orch.RunText(ctx, text)
			} else {
				result = orch.Run(ctx, args[0])
			}

			snap := result.Snapshot()
			printSummary(cmd, snap)

			if !snap.Success {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Process an inline text blob instead of a path")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers (overrides config)")
	cmd.Flags().StringVar(&mode, "on-error", "", "Error mode: fail_fast, continue, threshold (overrides config)")

	return cmd
}

// progressPrinter renders one line per source-state transition.
func progressPrinter(cmd *cobra.Command) func(batch.Progress) {
	return func(p batch.Progress) {
		switch p.State {
		case batch.StateScanning:
			fmt.Fprintf(cmd.OutOrStdout(), "scanning %s\n", p.Source)
		case batch.StateExtracting:
			fmt.Fprintf(cmd.OutOrStdout(), "extracting %s\n", p.Source)
		case batch.StateProcessing:
			if p.ItemsDone > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d/%d] ok=%d failed=%d\n",
					p.ItemsDone, p.ItemsTotal, p.Succeeded, p.Failed)
			}
		case batch.StateFailed:
			fmt.Fprintf(cmd.OutOrStdout(), "halted at %s\n", p.Source)
		}
	}
}

// printSummary renders the end-of-run accounting.
func printSummary(cmd *cobra.Command, snap batch.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nrun %s\n", snap.RunID)
	fmt.Fprintf(out, "  sources:   %d\n", len(snap.Sources))
	fmt.Fprintf(out, "  items:     %d (%d succeeded, %d failed)\n",
		snap.Total, snap.Successful, snap.Failed)
	if len(snap.Faults) > 0 {
		fmt.Fprintf(out, "  faults:    %d\n", len(snap.Faults))
	}
	if snap.IndexPath != "" {
		fmt.Fprintf(out, "  index:     %s\n", snap.IndexPath)
	}
	if snap.ErrorReport != "" {
		fmt.Fprintf(out, "  errors:    %s\n", snap.ErrorReport)
	}
}
