package response

import (
	"errors"
)

type Error struct {
	Code  int
	Err   error
	cause error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying failure that produced the response error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

// Cause returns the wrapped failure or nil.
func (e *Error) Cause() error {
	return e.cause
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

// WithCause copies a sentinel created by NewError and attaches cause to it. The copy still
// matches the sentinel through errors.Is while keeping the original failure for logs.
func WithCause(sentinel error, cause error) error {
	var s *Error
	if !errors.As(sentinel, &s) {
		return sentinel
	}
	return &Error{Code: s.Code, Err: s.Err, cause: cause}
}
