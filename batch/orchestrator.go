package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/c360studio/conceptpipe/expand"
	"github.com/c360studio/conceptpipe/extract"
	"github.com/c360studio/conceptpipe/fault"
	"github.com/c360studio/conceptpipe/locator"
	"github.com/c360studio/conceptpipe/output"
)

// State is the per-source processing stage.
type State string

const (
	StateScanning   State = "scanning"
	StateExtracting State = "extracting"
	StateProcessing State = "processing"
	StateWriting    State = "writing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Progress is a mid-run snapshot handed to the progress callback.
type Progress struct {
	Source     string
	State      State
	ItemsDone  int
	ItemsTotal int
	Succeeded  int
	Failed     int
}

// inlineSourceName labels work items created from an inline text blob.
const inlineSourceName = "<inline>"

// Options wires an Orchestrator. Locator, Extractor, Resolver, Writer and
// Expander are required.
type Options struct {
	Locator   *locator.Locator
	Extractor *extract.Extractor
	Resolver  *output.Resolver
	Writer    *output.Writer
	Expander  expand.Expander

	// Policy governs whether the run continues after a fault.
	Policy fault.Policy

	// Registry supplies remediation hints for the error report.
	Registry *fault.Registry

	// Workers bounds item concurrency. Values below 2 mean sequential.
	Workers int

	// Timeout is the per-item expansion deadline.
	Timeout time.Duration

	// Retries is how many times a recoverable item fault is retried.
	Retries int

	// RetryBackoff is the base of the deterministic backoff between item
	// retries (doubled each attempt).
	RetryBackoff time.Duration

	// EmitErrorReport renders errors.json next to the index when faults
	// occurred.
	EmitErrorReport bool

	// ReportDir is where index.json and errors.json are rendered. Empty
	// disables report rendering.
	ReportDir string

	Logger     *slog.Logger
	Metrics    *Metrics
	OnProgress func(Progress)
}

// Orchestrator drives a batch run to completion. All per-item outcomes are
// independent; one item's fault never corrupts another's.
type Orchestrator struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Orchestrator, validating required collaborators.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Locator == nil:
		return nil, fmt.Errorf("locator is required")
	case opts.Extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case opts.Resolver == nil:
		return nil, fmt.Errorf("resolver is required")
	case opts.Writer == nil:
		return nil, fmt.Errorf("writer is required")
	case opts.Expander == nil:
		return nil, fmt.Errorf("expander is required")
	}
	if opts.Registry == nil {
		opts.Registry = fault.NewRegistry()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{opts: opts, logger: opts.Logger}, nil
}

// Run processes every source under root (a file or directory) and returns
// the finalized result. The run always terminates and always produces a
// result, even on total failure; cooperative cancellation finalizes and
// flushes partial accounting instead of discarding it.
func (o *Orchestrator) Run(ctx context.Context, root string) *Result {
	result := NewResult()
	o.opts.Metrics.RunStarted()

	o.progress(Progress{State: StateScanning, Source: root})

	scan, err := o.opts.Locator.Scan(root)
	if err != nil {
		f := fault.Classify(err, fault.Context{Op: fault.OpScan, File: root})
		result.AddFault(f)
		o.opts.Metrics.ObserveFault(f.Kind)
		o.finish(result)
		return result
	}
	result.AddWarnings(scan.Warnings)

	for _, src := range scan.Accepted {
		result.AddSource(src.Path)
	}

	for _, src := range scan.Accepted {
		if ctx.Err() != nil {
			result.AddWarning("run cancelled before " + src.Path)
			break
		}
		if !o.processSource(ctx, src.Path, result) {
			break
		}
	}

	o.finish(result)
	return result
}

// RunText processes an inline text blob as a one-row, one-file source,
// symmetric with file input.
func (o *Orchestrator) RunText(ctx context.Context, text string) *Result {
	result := NewResult()
	o.opts.Metrics.RunStarted()

	items := extract.FromText(text, inlineSourceName)
	if len(items) == 0 {
		f := fault.New(fault.KindValidation, fault.Context{Op: fault.OpExtract, File: inlineSourceName}, "inline text is empty")
		result.AddFault(f)
		o.opts.Metrics.ObserveFault(f.Kind)
		o.finish(result)
		return result
	}

	result.AddSource(inlineSourceName)
	o.processItems(ctx, inlineSourceName, items, result)
	o.finish(result)
	return result
}

// processSource runs extraction and item processing for one source file.
// Returns false when the whole run must halt.
func (o *Orchestrator) processSource(ctx context.Context, path string, result *Result) bool {
	o.progress(Progress{State: StateExtracting, Source: path})

	items, warnings, err := o.opts.Extractor.Extract(path)
	result.AddWarnings(warnings)
	if err != nil {
		f := fault.Classify(err, fault.Context{Op: fault.OpExtract, File: path})
		collected := result.AddFault(f)
		o.opts.Metrics.ObserveFault(f.Kind)
		o.logger.Warn("Source failed during extraction",
			"file", path,
			"kind", f.Kind,
			"error", f.Message)

		if !o.opts.Policy.ShouldContinueRun(collected) {
			o.progress(Progress{State: StateFailed, Source: path})
			return false
		}
		return true
	}

	if len(items) == 0 {
		o.logger.Info("Source has no data rows", "file", path)
		o.progress(Progress{State: StateDone, Source: path})
		return true
	}

	return o.processItems(ctx, path, items, result)
}

// processItems drives the items of one source through expansion and writing.
// Returns false when the run must halt.
func (o *Orchestrator) processItems(ctx context.Context, source string, items []extract.WorkItem, result *Result) bool {
	o.progress(Progress{State: StateProcessing, Source: source, ItemsTotal: len(items)})

	cont := true
	if o.opts.Workers > 1 {
		cont = o.processPooled(ctx, source, items, result)
	} else {
		cont = o.processSequential(ctx, source, items, result)
	}

	state := StateDone
	if !cont {
		state = StateFailed
	}
	o.progress(Progress{State: state, Source: source, ItemsTotal: len(items)})
	return cont
}

// processSequential is the default scheduling model: deterministic ordering
// with the stop signal checked between items.
func (o *Orchestrator) processSequential(ctx context.Context, source string, items []extract.WorkItem, result *Result) bool {
	for i, item := range items {
		if ctx.Err() != nil {
			result.AddWarning(fmt.Sprintf("run cancelled at %s row %d", source, item.Row))
			return false
		}

		outcome := o.processItem(ctx, item)
		if !o.record(ctx, result, outcome) {
			return false
		}

		snap := result.Snapshot()
		o.progress(Progress{
			State:      StateProcessing,
			Source:     source,
			ItemsDone:  i + 1,
			ItemsTotal: len(items),
			Succeeded:  snap.Successful,
			Failed:     snap.Failed,
		})
	}
	return true
}

// processPooled processes independent items on a bounded worker pool.
// Outcomes stream back to this goroutine as workers finish and are folded
// into extraction order through a cursor, so the continuation policy is
// applied the moment each outcome arrives. A halting fault cancels the pool
// right away: queued items are never fed and in-flight calls see the
// cancelled context. Items that had already completed and written their
// document still land in the result, so no output file goes unaccounted.
func (o *Orchestrator) processPooled(ctx context.Context, source string, items []extract.WorkItem, result *Result) bool {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type indexed struct {
		idx     int
		outcome Outcome
	}

	jobs := make(chan int)
	results := make(chan indexed)

	var wg sync.WaitGroup
	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if pctx.Err() != nil {
					return
				}
				results <- indexed{idx: i, outcome: o.processItem(pctx, items[i])}
			}
		}()
	}

	go func() {
	feed:
		for i := range items {
			select {
			case jobs <- i:
			case <-pctx.Done():
				break feed
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]Outcome, o.opts.Workers)
	next := 0
	halted := false
	for res := range results {
		if halted {
			// A write that finished before the halt reached this item must
			// stay accounted for; post-halt faults are dropped.
			if res.outcome.Fault == nil {
				o.record(ctx, result, res.outcome)
			}
			continue
		}
		pending[res.idx] = res.outcome
		for {
			out, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if !o.record(ctx, result, out) {
				halted = true
				cancel()
				break
			}
		}
	}

	if halted {
		// Stashed out-of-order successes, flushed in extraction order.
		idxs := make([]int, 0, len(pending))
		for i := range pending {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		for _, i := range idxs {
			if pending[i].Fault == nil {
				o.record(ctx, result, pending[i])
			}
		}
		return false
	}

	if ctx.Err() != nil && next < len(items) {
		result.AddWarning(fmt.Sprintf("run cancelled at %s row %d", source, items[next].Row))
		return false
	}
	return true
}

// record folds one outcome into the result, applying the continuation
// policy. A halting fault is recorded without an outcome: the item never
// completed, so it contributes to the fault list only. Returns false when
// the run must halt.
func (o *Orchestrator) record(ctx context.Context, result *Result, outcome Outcome) bool {
	if outcome.Fault == nil {
		o.opts.Metrics.ObserveItem(true, outcome.Elapsed)
		if err := result.AddOutcome(outcome); err != nil {
			o.logger.Warn("Dropped outcome", "error", err)
		}
		return true
	}

	// An in-flight cancellation is not an item fault: flush what we have.
	if ctx.Err() != nil && outcome.Fault.Kind != fault.KindTimeout {
		result.AddWarning(fmt.Sprintf("run cancelled while processing %s row %d",
			outcome.Item.Source.File, outcome.Item.Row))
		return false
	}

	collected := result.AddFault(outcome.Fault)
	o.opts.Metrics.ObserveFault(outcome.Fault.Kind)

	if !o.opts.Policy.ShouldContinue(outcome.Fault, collected) {
		o.logger.Warn("Halting batch on fault",
			"kind", outcome.Fault.Kind,
			"file", outcome.Item.Source.File,
			"row", outcome.Item.Row)
		return false
	}

	o.opts.Metrics.ObserveItem(false, outcome.Elapsed)
	if err := result.AddOutcome(outcome); err != nil {
		o.logger.Warn("Dropped outcome", "error", err)
	}
	return true
}

// processItem runs one work item through expansion and output writing. The
// returned outcome is self-contained; faults never escape it.
func (o *Orchestrator) processItem(ctx context.Context, item extract.WorkItem) Outcome {
	start := time.Now()
	outcome := Outcome{Item: item}

	res, f := o.expandWithRetry(ctx, item)
	outcome.Elapsed = time.Since(start)
	if f != nil {
		outcome.Fault = f
		return outcome
	}
	outcome.Payload = res

	path, err := o.opts.Resolver.Resolve(item)
	if err != nil {
		outcome.Fault = fault.Classify(err, fault.Context{Op: fault.OpWrite, File: item.Source.File, Row: item.Row})
		outcome.Elapsed = time.Since(start)
		return outcome
	}

	doc := output.Document{
		Metadata: output.Metadata{
			GeneratedAt:  time.Now().UTC(),
			SourceFile:   item.Source.File,
			Row:          item.Row,
			ProcessingMS: time.Since(start).Milliseconds(),
			Success:      true,
		},
		Payload:  res,
		Warnings: outcome.Warnings,
	}
	if err := o.opts.Writer.Write(path, doc); err != nil {
		outcome.Fault = fault.Classify(err, fault.Context{Op: fault.OpWrite, File: item.Source.File, Row: item.Row})
		outcome.Elapsed = time.Since(start)
		return outcome
	}

	outcome.Success = true
	outcome.OutputPath = path
	outcome.Elapsed = time.Since(start)
	return outcome
}

// expandWithRetry invokes the expansion collaborator under the per-item
// timeout, retrying recoverable faults up to the configured count with a
// deterministic doubling backoff. The remediation registry is a hint only;
// retry ownership lives here.
func (o *Orchestrator) expandWithRetry(ctx context.Context, item extract.WorkItem) (*expand.Result, *fault.Fault) {
	req := expand.Request{Concept: item.Concept, Body: item.Body}
	fctx := fault.Context{Op: fault.OpExpand, File: item.Source.File, Row: item.Row}

	attempts := o.opts.Retries + 1
	var lastFault *fault.Fault

	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
		res, err := o.opts.Expander.Expand(callCtx, req)
		cancel()

		if err == nil {
			return res, nil
		}

		lastFault = fault.Classify(err, fctx)
		if !lastFault.Recoverable || expand.IsFatal(err) || ctx.Err() != nil {
			return nil, lastFault
		}

		if attempt < attempts {
			backoff := o.opts.RetryBackoff << (attempt - 1)
			o.logger.Debug("Retrying item after fault",
				"file", item.Source.File,
				"row", item.Row,
				"attempt", attempt,
				"backoff", backoff,
				"kind", lastFault.Kind)
			select {
			case <-ctx.Done():
				return nil, lastFault
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastFault
}

// finish finalizes the result and renders the index and error report.
func (o *Orchestrator) finish(result *Result) {
	result.Finalize()

	if o.opts.ReportDir == "" {
		return
	}

	reporter := NewReporter(o.opts.Registry, WithReporterLogger(o.logger))

	indexPath, err := reporter.WriteIndex(o.opts.ReportDir, result.Snapshot())
	if err != nil {
		o.logger.Error("Failed to write index document", "error", err)
	} else {
		result.SetIndexPath(indexPath)
	}

	if o.opts.EmitErrorReport {
		reportPath, err := reporter.WriteErrorReport(o.opts.ReportDir, result.Snapshot())
		if err != nil {
			o.logger.Error("Failed to write error report", "error", err)
		} else if reportPath != "" {
			result.SetErrorReportPath(reportPath)
		}
	}

	snap := result.Snapshot()
	o.logger.Info("Batch run complete",
		"run_id", snap.RunID,
		"total", snap.Total,
		"succeeded", snap.Successful,
		"failed", snap.Failed,
		"faults", len(snap.Faults),
		"success", snap.Success)
}

// progress invokes the progress callback if configured.
func (o *Orchestrator) progress(p Progress) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(p)
	}
}
