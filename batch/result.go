// Package batch drives the pipeline end to end: scanning sources, extracting
// work items, invoking the expansion collaborator, writing results, and
// accumulating everything into a single finalized run result.
package batch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/conceptpipe/extract"
	"github.com/c360studio/conceptpipe/fault"
)

// Outcome is the result of processing one work item. Created once per item;
// never mutated after it is appended to the run result.
type Outcome struct {
	Item       extract.WorkItem
	Success    bool
	Payload    any
	Elapsed    time.Duration
	OutputPath string
	Warnings   []string
	Fault      *fault.Fault
}

// Result is the run-level aggregate: append-only while the run is live,
// immutable once finalized. Appends are serialized, so a worker pool can
// share one Result; read-only snapshots are available at any time.
type Result struct {
	mu sync.Mutex

	runID     string
	startedAt time.Time

	sources    []string
	outcomes   []Outcome
	faults     []*fault.Fault
	warnings   []string
	successful int
	failed     int

	finalized   bool
	completedAt time.Time
	indexPath   string
	errorReport string
}

// ErrFinalized is returned when an append is attempted after Finalize.
var ErrFinalized = fmt.Errorf("batch result is finalized")

// NewResult starts a fresh run result with a unique run ID.
func NewResult() *Result {
	return &Result{
		runID:     uuid.New().String(),
		startedAt: time.Now().UTC(),
	}
}

// RunID returns the run identifier.
func (r *Result) RunID() string {
	return r.runID
}

// AddSource records a discovered source file.
func (r *Result) AddSource(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.sources = append(r.sources, path)
}

// AddOutcome appends one item outcome, updating the success/failure counts
// in the same critical section so the count invariant holds after every
// mutation.
func (r *Result) AddOutcome(o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return ErrFinalized
	}
	r.outcomes = append(r.outcomes, o)
	if o.Success {
		r.successful++
	} else {
		r.failed++
	}
	return nil
}

// AddFault appends a fault and returns the total collected so far, which
// the continuation policy consumes.
func (r *Result) AddFault(f *fault.Fault) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return len(r.faults)
	}
	r.faults = append(r.faults, f)
	return len(r.faults)
}

// AddWarning appends a run-level warning.
func (r *Result) AddWarning(w string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.warnings = append(r.warnings, w)
}

// AddWarnings appends several warnings at once.
func (r *Result) AddWarnings(ws []string) {
	for _, w := range ws {
		r.AddWarning(w)
	}
}

// FaultCount returns the number of faults collected so far.
func (r *Result) FaultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.faults)
}

// SetIndexPath records where the index document was rendered. Allowed after
// Finalize: the index is written from the finalized summary.
func (r *Result) SetIndexPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexPath = path
}

// SetErrorReportPath records where the error report was rendered.
func (r *Result) SetErrorReportPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorReport = path
}

// Finalize stamps the end time and freezes the result. Idempotent: the
// second and later calls change nothing.
func (r *Result) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return
	}
	r.finalized = true
	r.completedAt = time.Now().UTC()
}

// Snapshot returns a read-only copy of the current state. Safe to call
// mid-flight for progress reporting.
func (r *Result) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

// Summary holds the rendered, immutable view of a Result.
type Summary struct {
	RunID       string          `json:"run_id"`
	Success     bool            `json:"success"`
	Finalized   bool            `json:"finalized"`
	Total       int             `json:"total"`
	Successful  int             `json:"successful"`
	Failed      int             `json:"failed"`
	SuccessRate float64         `json:"success_rate"`
	Sources     []string        `json:"sources"`
	Outcomes    []OutcomeRecord `json:"outcomes"`
	Faults      []FaultRecord   `json:"faults,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	IndexPath   string          `json:"index_path,omitempty"`
	ErrorReport string          `json:"error_report,omitempty"`
}

// OutcomeRecord is the JSON shape of one outcome in the index document.
type OutcomeRecord struct {
	Source     string   `json:"source"`
	Row        int      `json:"row"`
	Concept    string   `json:"concept"`
	Success    bool     `json:"success"`
	OutputPath string   `json:"output_path,omitempty"`
	ElapsedMS  int64    `json:"elapsed_ms"`
	Error      string   `json:"error,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// FaultRecord is the JSON shape of one fault.
type FaultRecord struct {
	Kind        fault.Kind `json:"kind"`
	Message     string     `json:"message"`
	Op          string     `json:"op"`
	File        string     `json:"file,omitempty"`
	Row         int        `json:"row,omitempty"`
	Recoverable bool       `json:"recoverable"`
	Detail      string     `json:"detail,omitempty"`
}

func (r *Result) summaryLocked() Summary {
	s := Summary{
		RunID:      r.runID,
		Success:    r.failed == 0 && len(r.faults) == 0,
		Finalized:  r.finalized,
		Total:      len(r.outcomes),
		Successful: r.successful,
		Failed:     r.failed,
		Sources:    append([]string(nil), r.sources...),
		Warnings:   append([]string(nil), r.warnings...),
		StartedAt:  r.startedAt,
		IndexPath:  r.indexPath,
	}
	if len(r.outcomes) > 0 {
		s.SuccessRate = float64(r.successful) / float64(len(r.outcomes))
	}
	if r.finalized {
		completed := r.completedAt
		s.CompletedAt = &completed
	}
	s.ErrorReport = r.errorReport

	for _, o := range r.outcomes {
		rec := OutcomeRecord{
			Source:     o.Item.Source.File,
			Row:        o.Item.Row,
			Concept:    o.Item.Concept,
			Success:    o.Success,
			OutputPath: o.OutputPath,
			ElapsedMS:  o.Elapsed.Milliseconds(),
			Warnings:   o.Warnings,
		}
		if o.Fault != nil {
			rec.Error = o.Fault.Error()
		}
		s.Outcomes = append(s.Outcomes, rec)
	}

	for _, f := range r.faults {
		rec := FaultRecord{
			Kind:        f.Kind,
			Message:     f.Message,
			Op:          f.Context.Op,
			File:        f.Context.File,
			Row:         f.Context.Row,
			Recoverable: f.Recoverable,
		}
		if cause := f.Unwrap(); cause != nil {
			rec.Detail = cause.Error()
		}
		s.Faults = append(s.Faults, rec)
	}
	return s
}
