// Package errs implements the engine's error-kind taxonomy (see
// spec.md §7): every failure surfaced by the wire codec,
// connection drivers, or filter pipeline carries one of a fixed set
// of Kinds so callers can decide whether to retry, respond, or just
// close the connection, without string-matching error messages.
package errs

import "github.com/pkg/errors"

// Kind classifies why an operation failed.
type Kind int

const (
	// Transport covers TCP/TLS read/write and DNS failures.
	Transport Kind = iota
	// Timeout covers any timed phase; treated like Transport except
	// that a read-head timeout is logged at debug level, not warn.
	Timeout
	// Protocol covers head-parser and body-framing violations.
	Protocol
	// Policy covers body-max, encoding-reject, unsupported method or
	// version: failures mapped to a specific status code.
	Policy
	// Handler covers a panic or error escaping user code.
	Handler
	// Cancellation covers caller-initiated cancellation.
	Cancellation
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Timeout:
		return "timeout"
	case Protocol:
		return "protocol"
	case Policy:
		return "policy"
	case Handler:
		return "handler"
	case Cancellation:
		return "cancellation"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with a wrapped cause and, for Policy and
// Protocol kinds, the status code the caller should write back.
type Error struct {
	Kind   Kind
	Status int // 0 if not applicable
	cause  error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Cause() error { return e.cause }

// New wraps cause (which may be nil) as an Error of the given kind.
func New(kind Kind, status int, cause error) *Error {
	return &Error{Kind: kind, Status: status, cause: errors.WithStack(cause)}
}

// Wrap annotates cause with msg and tags it with kind, using
// github.com/pkg/errors so the original stack trace is preserved for
// logging (see SPEC_FULL.md's ambient-stack error-handling section).
func Wrap(kind Kind, status int, cause error, msg string) *Error {
	return &Error{Kind: kind, Status: status, cause: errors.Wrap(cause, msg)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is
// an *Error, and reports ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Fatal reports whether kind should suppress request-body draining
// (spec.md §7: "Fatal kinds ... additionally suppress connection
// draining"). Only unchecked handler bugs are fatal in that sense.
func Fatal(kind Kind) bool {
	return kind == Handler
}
