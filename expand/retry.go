package expand

import "time"

// RetryConfig bounds the client-side retry loop around one expansion call.
// Only transiently marked failures are retried; the orchestrator layers its
// own per-item retry budget on top of this.
type RetryConfig struct {
	// MaxAttempts caps total tries, the first call included.
	MaxAttempts int

	// InitialDelay seeds the backoff before the second attempt.
	InitialDelay time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64

	// MaxDelay caps the grown delay. Jitter is applied after capping.
	MaxDelay time.Duration
}

// DefaultRetryConfig suits a local or lightly loaded model endpoint: three
// tries with a short doubling backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
	}
}
