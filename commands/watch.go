package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/c360studio/conceptpipe/config"
)

// defaultDebounce is how long the watcher waits for the source tree to
// settle before re-running.
const defaultDebounce = 500 * time.Millisecond

// newWatchCmd builds the watch subcommand: re-run the batch whenever a
// source file under the root is created or written.
func newWatchCmd(root *rootOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Re-run the pipeline when sources under the path change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			logger := root.newLogger()

			orch, err := buildOrchestrator(cfg, logger, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watchLoop{
				root:       args[0],
				debounce:   debounce,
				extensions: extensionSet(cfg.Sources.Extensions),
				run: func(ctx context.Context) {
					snap := orch.Run(ctx, args[0]).Snapshot()
					fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d items, %d succeeded, %d failed, %d faults\n",
						snap.RunID, snap.Total, snap.Successful, snap.Failed, len(snap.Faults))
				},
			}
			return w.watch(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "Settle time before re-running")
	return cmd
}

// extensionSet lowers and dot-prefixes the configured extensions.
func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = []string{".csv", ".tsv", ".txt"}
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// watchLoop owns the fsnotify watcher and the debounce timer.
type watchLoop struct {
	root       string
	debounce   time.Duration
	extensions map[string]bool
	run        func(context.Context)
}

// watch runs once up front, then re-runs after each settled burst of
// relevant filesystem events. Returns when ctx is cancelled.
func (w *watchLoop) watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addWatches(fsw); err != nil {
		return err
	}

	w.run(ctx)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				// New subdirectories need their own watch.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = fsw.Add(event.Name)
					}
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return err

		case <-fire:
			timer = nil
			fire = nil
			w.run(ctx)
		}
	}
}

// relevant reports whether an event concerns a watchable source file.
func (w *watchLoop) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.extensions[strings.ToLower(filepath.Ext(event.Name))]
}

// addWatches registers the root, or the root's directory tree.
func (w *watchLoop) addWatches(fsw *fsnotify.Watcher) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fsw.Add(filepath.Dir(w.root))
	}
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != "." && path != w.root {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
