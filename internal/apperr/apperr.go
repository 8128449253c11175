// Package apperr defines the error taxonomy shared by the settlement engines and
// the HTTP layer.  Engines return *Error values; handlers translate the Kind
// into a status code and a JSON envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindInvalidState
	KindPayment
	KindSettlement
	KindUnauthorized
)

// String returns the machine readable code emitted in error envelopes.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission_denied"
	case KindInvalidState:
		return "invalid_state"
	case KindPayment:
		return "payment_error"
	case KindSettlement:
		return "settlement_error"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps a Kind to the status code returned to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusConflict
	case KindPayment:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a client may safely retry the same request.
// Settlement failures are retryable because every money-moving operation
// is guarded by conditional status updates.
func (k Kind) Retryable() bool { return k == KindSettlement }

// Error is the concrete error carried through the service layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value pair echoed back to the client.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, 1)
	}
	e.Details[key] = value
	return e
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return newf(KindNotFound, format, args...) }
func Permission(format string, args ...any) *Error { return newf(KindPermission, format, args...) }
func InvalidState(format string, args ...any) *Error {
	return newf(KindInvalidState, format, args...)
}
func Unauthorized(format string, args ...any) *Error {
	return newf(KindUnauthorized, format, args...)
}

// Payment wraps a gateway failure.  err may be nil when the gateway
// answered with an explicit rejection.
func Payment(err error, format string, args ...any) *Error {
	e := newf(KindPayment, format, args...)
	e.Err = err
	return e
}

// Settlement wraps a database or transactional failure inside a
// money-moving operation.
func Settlement(err error, format string, args ...any) *Error {
	e := newf(KindSettlement, format, args...)
	e.Err = err
	return e
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
