// Package clinicerr defines the domain error kinds shared by all clinic
// services. Services return these; the HTTP handlers map kinds to status
// codes without inspecting message text.
package clinicerr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Validation Kind = iota
	NotFound
	Conflict
	InvalidTransition
	Overpayment
	Forbidden
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidTransition:
		return "invalid_transition"
	case Overpayment:
		return "overpayment"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is a tagged domain error. Wrapped causes (if any) are reachable
// through errors.Unwrap.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err. ok is false for plain infrastructure
// errors, which callers should treat as internal failures.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus returns the transport status the request layer uses for a kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, Overpayment:
		return http.StatusUnprocessableEntity
	case NotFound:
		return http.StatusNotFound
	case Conflict, InvalidTransition:
		return http.StatusConflict
	case Forbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
