package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request")
	ErrConflict       = errors.New("conflict")
	ErrTransient      = errors.New("store temporarily unavailable")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstream       = errors.New("upstream unavailable")
)

// Error carries a client-facing message and unwraps to one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

func Invalid(format string, args ...interface{}) error {
	return newError(ErrInvalidRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newError(ErrUnauthorized, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// Message returns the client message of err, or the fallback when err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

type ValidationErrorResponse struct {
	Message string `json:"message"`
}
