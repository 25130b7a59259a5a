// Package fault provides the closed failure taxonomy for the batch pipeline,
// a total classifier that translates raw errors into typed faults, and the
// recovery registry that maps each fault kind to a remediation hint.
package fault

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind identifies a fault category. The taxonomy is closed; strategy sites
// switch exhaustively over these values.
type Kind string

const (
	// KindNotFound indicates a missing file or directory.
	KindNotFound Kind = "not_found"

	// KindPermission indicates an unreadable or unwritable path.
	KindPermission Kind = "permission"

	// KindParse indicates a structurally malformed source.
	KindParse Kind = "parse"

	// KindValidation indicates a missing or invalid field.
	KindValidation Kind = "validation"

	// KindTransform indicates a failure in the external expansion collaborator.
	KindTransform Kind = "transform"

	// KindTimeout indicates an expansion call that exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindWrite indicates an output I/O failure.
	KindWrite Kind = "write"

	// KindUnknown is the catch-all for unrecognized failures.
	KindUnknown Kind = "unknown"
)

// Kinds lists every fault kind, in reporting order.
func Kinds() []Kind {
	return []Kind{
		KindNotFound,
		KindPermission,
		KindParse,
		KindValidation,
		KindTransform,
		KindTimeout,
		KindWrite,
		KindUnknown,
	}
}

// Context describes where a failure was caught.
type Context struct {
	// Op is the pipeline operation that was running (see Op constants).
	Op string `json:"op"`

	// File is the source file being processed, if any.
	File string `json:"file,omitempty"`

	// Row is the 1-based source row, or 0 when not row-scoped.
	Row int `json:"row,omitempty"`
}

// Operation names used in fault contexts.
const (
	OpScan    = "scan"
	OpExtract = "extract"
	OpExpand  = "expand"
	OpWrite   = "write"
	OpReport  = "report"
)

// Fault is a classified failure. It implements error and unwraps to its
// underlying cause, so errors.Is/As work through it.
type Fault struct {
	Kind        Kind    `json:"kind"`
	Message     string  `json:"message"`
	Context     Context `json:"context"`
	Recoverable bool    `json:"recoverable"`

	cause error
}

// New creates a Fault without an underlying cause.
func New(kind Kind, ctx Context, format string, args ...any) *Fault {
	return &Fault{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		Context:     ctx,
		Recoverable: kindRecoverable(kind),
	}
}

// Wrap creates a Fault around an underlying error. The cause is wrapped with
// a stack trace so diagnostics survive aggregation.
func Wrap(err error, kind Kind, ctx Context, msg string) *Fault {
	return &Fault{
		Kind:        kind,
		Message:     msg,
		Context:     ctx,
		Recoverable: kindRecoverable(kind),
		cause:       errors.WithStack(err),
	}
}

func (f *Fault) Error() string {
	loc := f.Context.Op
	if f.Context.File != "" {
		loc += " " + f.Context.File
		if f.Context.Row > 0 {
			loc = fmt.Sprintf("%s:%d", loc, f.Context.Row)
		}
	}
	if f.cause != nil {
		return fmt.Sprintf("%s fault (%s): %s: %v", f.Kind, loc, f.Message, f.cause)
	}
	return fmt.Sprintf("%s fault (%s): %s", f.Kind, loc, f.Message)
}

// Unwrap returns the underlying cause, if any.
func (f *Fault) Unwrap() error {
	return f.cause
}

// Is matches faults by kind, so errors.Is(err, &Fault{Kind: KindParse})
// works without comparing messages or contexts.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Kind == f.Kind
}

// kindRecoverable is the default recoverability per kind. Missing files,
// permission problems and resource exhaustion always stop the affected scope.
func kindRecoverable(kind Kind) bool {
	switch kind {
	case KindNotFound, KindPermission:
		return false
	case KindParse, KindValidation, KindTransform, KindTimeout, KindWrite, KindUnknown:
		return true
	default:
		return true
	}
}
