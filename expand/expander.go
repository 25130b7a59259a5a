// Package expand defines the boundary to the concept-expansion collaborator
// and provides an LLM-backed client implementing it. The collaborator may be
// slow and must be assumed non-idempotent; callers own timeouts and retry
// accounting.
package expand

import "context"

// Request carries one concept to expand.
type Request struct {
	// Concept is the canonical text to expand.
	Concept string

	// Body is optional supporting text included in the prompt.
	Body string

	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64

	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int
}

// Result is the structured expansion outcome. Opaque to the pipeline: it is
// carried into the output document's payload section unchanged.
type Result struct {
	// Expansion is the generated text.
	Expansion string `json:"expansion"`

	// Model is the model that produced it.
	Model string `json:"model,omitempty"`

	// TokensUsed is the total token consumption, if reported.
	TokensUsed int `json:"tokens_used,omitempty"`

	// FinishReason indicates why generation stopped.
	FinishReason string `json:"finish_reason,omitempty"`
}

// Expander is the transformation collaborator.
type Expander interface {
	Expand(ctx context.Context, req Request) (*Result, error)
}

// ExpanderFunc adapts a function to the Expander interface.
type ExpanderFunc func(ctx context.Context, req Request) (*Result, error)

// Expand calls f.
func (f ExpanderFunc) Expand(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
