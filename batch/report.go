package batch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/c360studio/conceptpipe/fault"
)

// indexFileName is the per-run index document.
const indexFileName = "index.json"

// errorReportFileName is the optional sibling error report.
const errorReportFileName = "errors.json"

// Reporter renders the run-level artifacts: the index document summarizing
// every item, and the error report grouping faults by kind and source file.
type Reporter struct {
	registry *fault.Registry
	logger   *slog.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithReporterLogger sets the logger.
func WithReporterLogger(logger *slog.Logger) ReporterOption {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// NewReporter creates a Reporter. A nil registry falls back to the default
// remediation registry.
func NewReporter(registry *fault.Registry, opts ...ReporterOption) *Reporter {
	if registry == nil {
		registry = fault.NewRegistry()
	}
	r := &Reporter{registry: registry, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// WriteIndex renders the full result snapshot as index.json under dir and
// returns the written path.
func (r *Reporter) WriteIndex(dir string, summary Summary) (string, error) {
	path := filepath.Join(dir, indexFileName)
	if err := writeJSON(path, summary); err != nil {
		return "", fault.Wrap(err, fault.KindWrite, fault.Context{Op: fault.OpReport, File: path}, "render index document")
	}
	r.logger.Debug("Index document written", "path", path, "outcomes", summary.Total)
	return path, nil
}

// ErrorReport groups a run's faults by kind and by source file, with the
// remediation hint per kind.
type ErrorReport struct {
	RunID    string      `json:"run_id"`
	Summary  string      `json:"summary"`
	Total    int         `json:"total"`
	ByKind   []KindGroup `json:"by_kind"`
	ByFile   []FileGroup `json:"by_file"`
	Rendered time.Time   `json:"rendered_at"`
}

// KindGroup is the per-kind section of the error report.
type KindGroup struct {
	Kind   fault.Kind   `json:"kind"`
	Count  int          `json:"count"`
	Action fault.Action `json:"action"`
	Hint   string       `json:"hint"`
}

// FileGroup is the per-source-file section of the error report.
type FileGroup struct {
	File   string        `json:"file"`
	Count  int           `json:"count"`
	Faults []FaultRecord `json:"faults"`
}

// WriteErrorReport renders errors.json under dir when the summary carries
// faults. Returns the empty string (and no error) for a clean run.
func (r *Reporter) WriteErrorReport(dir string, summary Summary) (string, error) {
	if len(summary.Faults) == 0 {
		return "", nil
	}

	report := ErrorReport{
		RunID:    summary.RunID,
		Summary:  errorSummarySentence(summary),
		Total:    len(summary.Faults),
		Rendered: time.Now().UTC(),
	}

	byKind := make(map[fault.Kind]int)
	byFile := make(map[string][]FaultRecord)
	for _, f := range summary.Faults {
		byKind[f.Kind]++
		file := f.File
		if file == "" {
			file = "(no file)"
		}
		byFile[file] = append(byFile[file], f)
	}

	for _, kind := range fault.Kinds() {
		count, ok := byKind[kind]
		if !ok {
			continue
		}
		remedy := r.registry.Lookup(kind)
		report.ByKind = append(report.ByKind, KindGroup{
			Kind:   kind,
			Count:  count,
			Action: remedy.Action,
			Hint:   remedy.Hint,
		})
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		report.ByFile = append(report.ByFile, FileGroup{
			File:   file,
			Count:  len(byFile[file]),
			Faults: byFile[file],
		})
	}

	path := filepath.Join(dir, errorReportFileName)
	if err := writeJSON(path, report); err != nil {
		return "", fault.Wrap(err, fault.KindWrite, fault.Context{Op: fault.OpReport, File: path}, "render error report")
	}
	r.logger.Debug("Error report written", "path", path, "faults", report.Total)
	return path, nil
}

// errorSummarySentence builds the human-readable headline of the error
// report.
func errorSummarySentence(summary Summary) string {
	byKind := make(map[fault.Kind]int)
	files := make(map[string]bool)
	for _, f := range summary.Faults {
		byKind[f.Kind]++
		if f.File != "" {
			files[f.File] = true
		}
	}

	var topKind fault.Kind
	topCount := 0
	for _, kind := range fault.Kinds() {
		if byKind[kind] > topCount {
			topKind, topCount = kind, byKind[kind]
		}
	}

	plural := func(n int, word string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, word)
		}
		return fmt.Sprintf("%d %ss", n, word)
	}

	return fmt.Sprintf("%s across %s; most common kind: %s (%d).",
		plural(len(summary.Faults), "fault"),
		plural(len(files), "source file"),
		topKind, topCount)
}

// writeJSON renders v as indented JSON at path, creating parent directories
// as needed. The write is atomic via temp file and rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
