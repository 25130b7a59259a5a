package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/conceptpipe/fault"
)

// Metadata is the generation envelope every result document carries.
type Metadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	SourceFile   string    `json:"source_file"`
	Row          int       `json:"row"`
	ProcessingMS int64     `json:"processing_ms"`
	Success      bool      `json:"success"`
}

// Document is one expansion result as written to disk: a metadata section,
// the opaque transformation payload, and optional error/warning sections.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Payload  any      `json:"payload,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Writer persists result documents. Writes are atomic: a temp file in the
// destination directory renamed into place, so readers never observe a
// partial document.
type Writer struct {
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a Writer.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Write renders doc as indented JSON at path, creating parent directories as
// needed. Failures are write faults.
func (w *Writer) Write(path string, doc Document) error {
	ctx := fault.Context{Op: fault.OpWrite, File: doc.Metadata.SourceFile, Row: doc.Metadata.Row}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fault.Wrap(err, fault.KindWrite, ctx, "encode result document")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fault.Classify(err, ctx)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fault.Classify(err, ctx)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fault.Wrap(err, fault.KindWrite, ctx, fmt.Sprintf("write %s", path))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fault.Wrap(err, fault.KindWrite, ctx, fmt.Sprintf("close %s", path))
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fault.Wrap(err, fault.KindWrite, ctx, fmt.Sprintf("rename into %s", path))
	}

	w.logger.Debug("Result written", "path", path, "row", doc.Metadata.Row)
	return nil
}
