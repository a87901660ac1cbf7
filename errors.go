package relay

import (
	"errors"
	"time"
)

// ErrorCategory says how a caller should react to a failed model request.
type ErrorCategory string

const (
	// ErrorTransient failures may succeed on a later attempt: rate limits,
	// overloaded servers, dropped connections.
	ErrorTransient ErrorCategory = "transient"
	// ErrorPermanent failures will not go away by retrying, such as a bad
	// API key or an unknown model.
	ErrorPermanent ErrorCategory = "permanent"
	// ErrorUserInput failures need a different request.
	ErrorUserInput ErrorCategory = "user_input"
)

// Error is a provider failure tagged with its category.
//
// Backends return *Error so the client can tell a rate limit from a bad
// request without knowing which SDK produced it.
type Error struct {
	Category ErrorCategory
	Message  string
	// Status is the HTTP status of the failed call, or 0.
	Status int
	// RetryAfter is the server's requested wait, or 0.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether the request may be retried as is.
func (e *Error) Temporary() bool { return e.Category == ErrorTransient }

// NewTransientError returns a retryable error.
func NewTransientError(msg string, status int, cause error) *Error {
	return &Error{Category: ErrorTransient, Message: msg, Status: status, Err: cause}
}

// NewTransientErrorWithRetry returns a retryable error carrying the
// server's Retry-After hint.
func NewTransientErrorWithRetry(msg string, status int, wait time.Duration, cause error) *Error {
	e := NewTransientError(msg, status, cause)
	e.RetryAfter = wait
	return e
}

// NewPermanentError returns an error that retrying cannot fix.
func NewPermanentError(msg string, status int, cause error) *Error {
	return &Error{Category: ErrorPermanent, Message: msg, Status: status, Err: cause}
}

// NewUserInputError returns an error caused by the request itself.
func NewUserInputError(msg string, status int, cause error) *Error {
	return &Error{Category: ErrorUserInput, Message: msg, Status: status, Err: cause}
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// CategoryOf returns the category of the first *Error in err's chain,
// or the empty category when there is none.
func CategoryOf(err error) ErrorCategory {
	if e, ok := AsError(err); ok {
		return e.Category
	}
	return ""
}

func IsTransient(err error) bool { return CategoryOf(err) == ErrorTransient }

func IsPermanent(err error) bool { return CategoryOf(err) == ErrorPermanent }

func IsUserInput(err error) bool { return CategoryOf(err) == ErrorUserInput }

// StatusCodeOf returns the HTTP status recorded in err, or 0.
func StatusCodeOf(err error) int {
	if e, ok := AsError(err); ok {
		return e.Status
	}
	return 0
}

// RetryAfterOf returns the server-requested wait recorded in err, or 0.
func RetryAfterOf(err error) time.Duration {
	if e, ok := AsError(err); ok {
		return e.RetryAfter
	}
	return 0
}
