package service

import (
	"errors"
	"net/http"
)

// Error is the outcome of a use case that did not succeed. Code follows HTTP
// status semantics so the transport can pass it straight through; Message
// is safe to show to the caller.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Code so callers can test against the sentinels below while
// a use case returns a more specific message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

var (
	ErrBadRequest   = newError(http.StatusBadRequest, "invalid request")
	ErrUnauthorized = newError(http.StatusUnauthorized, "invalid or expired token")
	ErrForbidden    = newError(http.StatusForbidden, "forbidden")
	ErrNotFound     = newError(http.StatusNotFound, "not found")
	ErrConflict     = newError(http.StatusConflict, "already exists")
	ErrInternal     = newError(http.StatusInternalServerError, "internal error")

	// ErrInvalidCredentials is deliberately the same for an unknown email
	// and a wrong password.
	ErrInvalidCredentials = newError(http.StatusUnauthorized, "invalid credentials")
	ErrInactiveAccount    = newError(http.StatusForbidden, "account is inactive")
	ErrInvalidToken       = ErrUnauthorized
	ErrInvalidResetToken  = newError(http.StatusBadRequest, "invalid or expired reset token")
)

// AsError extracts the use case error from err. Anything that is not an
// *Error is reported as ErrInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}
