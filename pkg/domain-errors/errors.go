// Package domainerrors defines coded errors for the service layer.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those into coded errors here so
// the HTTP layer can map each code to a status and a stable error string
// without inspecting error text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and retry semantics.
type Code string

const (
	// CodeValidation marks malformed input: bad ids, bad date ranges,
	// unparseable payloads. Never retried; rejected before any state change.
	CodeValidation Code = "validation_error"

	// CodeInvalidState marks an operation that is not legal from the
	// entity's current state (e.g. deciding a non-PENDING application).
	CodeInvalidState Code = "invalid_state"

	// CodeCapacityExceeded marks an approval refused because the task is
	// full. Distinct from CodeConflict so callers can explain "task is
	// full" rather than "already decided".
	CodeCapacityExceeded Code = "capacity_exceeded"

	// CodeConflict marks duplicate creation attempts (second application
	// for the same task, second active submission). Safe to treat as
	// non-fatal by the caller.
	CodeConflict Code = "conflict"

	// CodeNotFound marks references to unknown or unowned entities.
	CodeNotFound Code = "not_found"

	// CodeForbidden marks role or ownership mismatches.
	CodeForbidden Code = "forbidden"

	// CodeCertificateRevoked marks operations on a blocked certificate.
	// The record exists; it is just invalid, so this is not a 404.
	CodeCertificateRevoked Code = "certificate_revoked"

	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeUnavailable marks transient failures of external collaborators
	// (proof-file store, renderer). Retryable by the caller.
	CodeUnavailable Code = "unavailable"

	// CodeTimeout marks an aborted operation due to context expiry.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected failures. Details are logged, never
	// surfaced to clients.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code carried by err, defaulting to CodeInternal for
// uncoded errors so unexpected failures never leak details.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-safe message carried by err; empty for
// uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
