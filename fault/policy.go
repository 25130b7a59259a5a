package fault

import "fmt"

// Mode selects the run-level continuation policy.
type Mode string

const (
	// ModeFailFast stops the whole run on the first fault.
	ModeFailFast Mode = "fail_fast"

	// ModeContinue continues past recoverable faults, stopping only on
	// non-recoverable ones.
	ModeContinue Mode = "continue"

	// ModeThreshold continues regardless of recoverability until the
	// accumulated fault count exceeds the configured ceiling.
	ModeThreshold Mode = "threshold"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFailFast, ModeContinue, ModeThreshold:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown error-handling mode %q (want fail_fast, continue, or threshold)", s)
	}
}

// Policy decides whether the run continues after a fault.
type Policy struct {
	Mode Mode

	// Threshold is the fault ceiling for ModeThreshold. Ignored otherwise.
	Threshold int
}

// ShouldContinue reports whether the run may proceed after fault f, given
// the total number of faults collected so far (including f).
func (p Policy) ShouldContinue(f *Fault, collected int) bool {
	switch p.Mode {
	case ModeFailFast:
		return false
	case ModeContinue:
		return f.Recoverable
	case ModeThreshold:
		return collected <= p.Threshold
	default:
		// Unknown modes behave like continue-on-error rather than
		// silently swallowing non-recoverable faults.
		return f.Recoverable
	}
}

// ShouldContinueRun decides whether the run proceeds to remaining sources
// after a source-level fault (scanning or extraction). Such faults abort
// the affected source only, whatever their recoverability; the whole run
// stops under fail-fast or once the threshold ceiling is breached.
func (p Policy) ShouldContinueRun(collected int) bool {
	switch p.Mode {
	case ModeFailFast:
		return false
	case ModeThreshold:
		return collected <= p.Threshold
	default:
		return true
	}
}
