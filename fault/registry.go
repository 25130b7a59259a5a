package fault

import "github.com/cockroachdb/errors"

// Action is the remediation category a fault kind maps to. The registry is
// purely diagnostic: the orchestrator owns retries and uses these values as
// hints only.
type Action string

const (
	// ActionRetryBackoff suggests re-invoking the operation with backoff.
	ActionRetryBackoff Action = "retry_with_backoff"

	// ActionFallback suggests substituting a fallback value.
	ActionFallback Action = "use_fallback_value"

	// ActionSkipItem suggests skipping the affected item and continuing.
	ActionSkipItem Action = "skip_item"

	// ActionAbort suggests stopping the affected scope.
	ActionAbort Action = "abort"
)

// Remedy describes how a fault kind can be remediated.
type Remedy struct {
	Action Action `json:"action"`
	Hint   string `json:"hint"`
}

// Registry maps fault kinds to remediation descriptors.
type Registry struct {
	remedies map[Kind]Remedy
}

// NewRegistry returns a registry populated with the default remedy per kind.
func NewRegistry() *Registry {
	return &Registry{
		remedies: map[Kind]Remedy{
			KindNotFound:   {ActionAbort, "check that the input path exists and is spelled correctly"},
			KindPermission: {ActionAbort, "check file permissions on the input and output directories"},
			KindParse:      {ActionSkipItem, "inspect the source file for malformed rows or a wrong delimiter"},
			KindValidation: {ActionFallback, "update the column mapping so a concept column is matched explicitly"},
			KindTransform:  {ActionRetryBackoff, "the expansion service failed; retry, or check the model endpoint"},
			KindTimeout:    {ActionRetryBackoff, "increase the per-item timeout or reduce request size"},
			KindWrite:      {ActionRetryBackoff, "check free disk space and output directory permissions"},
			KindUnknown:    {ActionSkipItem, "inspect the underlying error; this failure was not recognized"},
		},
	}
}

// Lookup returns the remedy for a kind. Unregistered kinds fall back to the
// unknown remedy, keeping the lookup total.
func (r *Registry) Lookup(kind Kind) Remedy {
	if rem, ok := r.remedies[kind]; ok {
		return rem
	}
	return r.remedies[KindUnknown]
}

// Annotate attaches the kind's remediation hint to the fault's error chain,
// so callers printing with %+v or collecting hints see the remedy.
func (r *Registry) Annotate(f *Fault) error {
	return errors.WithHint(f, r.Lookup(f.Kind).Hint)
}
