package expand

import "github.com/cockroachdb/errors"

// Failure classes for expansion calls. Both the client's retry loop and the
// orchestrator key off these marks rather than re-inspecting status codes,
// and the marks survive any wrapping on the error chain.
var (
	errTransient = errors.New("transient expansion failure")
	errFatal     = errors.New("permanent expansion failure")
)

// MarkTransient tags err as worth retrying: throttling, upstream 5xx,
// network hiccups.
func MarkTransient(err error) error {
	return errors.Mark(err, errTransient)
}

// MarkFatal tags err as beyond retry: bad credentials, rejected input,
// malformed requests.
func MarkFatal(err error) error {
	return errors.Mark(err, errFatal)
}

// IsTransient reports whether err carries the transient mark.
func IsTransient(err error) bool {
	return errors.Is(err, errTransient)
}

// IsFatal reports whether err carries the permanent mark. Not the negation
// of IsTransient: an unmarked error is neither, and the caller decides.
func IsFatal(err error) bool {
	return errors.Is(err, errFatal)
}
