// Package commands wires the conceptpipe command-line interface: batch runs,
// locate-only scans, and a watch mode that re-runs on source changes.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRoot builds the conceptpipe root command.
func NewRoot(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "conceptpipe",
		Short: "Batch concept expansion pipeline",
		Long: `Conceptpipe reads tabular concept files (CSV, TSV, plain text),
expands each row through a language-model endpoint, and writes one
structured JSON document per row.

Failed rows never abort the batch by default: faults are classified,
collected, and rendered into a run-level error report alongside the
index of all outcomes.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newWatchCmd(opts))
	cmd.AddCommand(newVersionCmd(version))

	return cmd
}

// newLogger builds the process logger at the requested level.
func (o *rootOptions) newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// errRunFailed signals a completed run with failures; it maps to a non-zero
// exit without a usage dump.
var errRunFailed = fmt.Errorf("run completed with failures")
