// Package apierr defines the rendezvous server's error-kind taxonomy
// (spec.md §7) and the HTTP adapter's mapping from kind to status code.
//
// Validators and handlers raise a *Error carrying one of the typed Kinds
// below; the HTTP adapter (out of scope here, see spec.md §1) maps the
// kind to a status code via Kind.HTTPStatus. Internal I/O or crypto
// failures are wrapped as KindInternal and logged with context, never
// surfaced to the caller beyond "internal error" (spec.md §7's
// propagation policy).
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the typed failure categories a handler or validator can
// raise (spec.md §7).
type Kind int

// The error kinds named in spec.md §7, in the same order.
const (
	KindInvalidRequest Kind = iota + 1
	KindAuthenticationFailed
	KindResourceNotAvailable
	KindInvalidSignature
	KindResourceAlreadyExists
	KindRequestOutdated
	KindInvalidKeyUpload
	KindInternal
)

// HTTPStatus maps a Kind to the status code the HTTP adapter should
// return (spec.md §7).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindAuthenticationFailed:
		return http.StatusUnauthorized
	case KindResourceNotAvailable:
		return http.StatusNotFound
	case KindInvalidSignature:
		return http.StatusNotAcceptable
	case KindResourceAlreadyExists:
		return http.StatusConflict
	case KindRequestOutdated:
		return http.StatusGone
	case KindInvalidKeyUpload:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// String names the kind (used in log fields and error text).
func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindAuthenticationFailed:
		return "AuthenticationFailed"
	case KindResourceNotAvailable:
		return "ResourceNotAvailable"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindResourceAlreadyExists:
		return "ResourceAlreadyExists"
	case KindRequestOutdated:
		return "RequestOutdated"
	case KindInvalidKeyUpload:
		return "InvalidKeyUpload"
	case KindInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is the typed error every validator and handler in this module
// raises. Op names the operation that failed (e.g. "registerDevice",
// "consumePreKeys"); Err is the underlying cause, inspectable via
// errors.Is/errors.As.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes the underlying error for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap builds an *Error wrapping an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// defaulting to KindInternal otherwise — matching §7's propagation
// policy that unclassified failures surface as internal errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
