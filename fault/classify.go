package fault

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io/fs"
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

// Classify translates a raw error into a typed Fault. It is a total
// function: every error maps to some kind, with KindUnknown as the floor.
// Structural signals (filesystem errors, deadlines, parse errors) win over
// the operation default, so a missing file reported by the expansion step is
// still a not-found fault.
func Classify(err error, ctx Context) *Fault {
	if err == nil {
		return nil
	}

	// Already classified: keep the kind, fill in missing context.
	var f *Fault
	if errors.As(err, &f) {
		return f.withContext(ctx)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return Wrap(err, KindTimeout, ctx, "operation exceeded its deadline")

	case errors.Is(err, fs.ErrNotExist):
		return Wrap(err, KindNotFound, ctx, "path does not exist")

	case errors.Is(err, fs.ErrPermission):
		return Wrap(err, KindPermission, ctx, "permission denied")

	case errors.Is(err, syscall.ENOMEM), errors.Is(err, syscall.ENOSPC):
		// Out-of-resource conditions are never recoverable.
		rf := Wrap(err, KindUnknown, ctx, "out of resources")
		rf.Recoverable = false
		return rf
	}

	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return Wrap(err, KindParse, ctx, "malformed tabular source")
	}

	var jsonSyn *json.SyntaxError
	if errors.As(err, &jsonSyn) {
		return Wrap(err, KindParse, ctx, "malformed JSON")
	}

	return Wrap(err, defaultKind(ctx.Op), ctx, "unhandled failure")
}

// withContext fills empty context fields from ctx without overwriting what
// the original classification recorded.
func (f *Fault) withContext(ctx Context) *Fault {
	if f.Context.Op == "" {
		f.Context.Op = ctx.Op
	}
	if f.Context.File == "" {
		f.Context.File = ctx.File
	}
	if f.Context.Row == 0 {
		f.Context.Row = ctx.Row
	}
	return f
}

// defaultKind maps an operation to the kind an otherwise-unrecognized error
// receives. Failures surfacing from the expansion collaborator are transform
// faults; output I/O failures are write faults.
func defaultKind(op string) Kind {
	switch op {
	case OpExpand:
		return KindTransform
	case OpWrite, OpReport:
		return KindWrite
	case OpExtract:
		return KindParse
	default:
		return KindUnknown
	}
}
