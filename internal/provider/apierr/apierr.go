// Package apierr maps provider HTTP failures onto relay's error categories.
package apierr

import (
	"net/http"
	"strconv"
	"time"

	ai "github.com/spetersoncode/relay"
)

// Categorize determines the error category from an HTTP status code.
func Categorize(code int) ai.ErrorCategory {
	switch {
	case code == 429:
		return ai.ErrorTransient // rate limited
	case code == 408 || code == 409:
		return ai.ErrorTransient
	case code >= 500 && code < 600:
		return ai.ErrorTransient
	case code == 401 || code == 403:
		return ai.ErrorPermanent
	case code == 400 || code == 404 || code == 413 || code == 422:
		return ai.ErrorUserInput
	default:
		return ai.ErrorPermanent
	}
}

// Wrap categorizes err by its status code. A positive retryAfter marks
// the error transient regardless of the code.
func Wrap(err error, code int, retryAfter time.Duration) error {
	category := Categorize(code)
	if retryAfter > 0 {
		category = ai.ErrorTransient
	}
	return &ai.Error{Category: category, Status: code, RetryAfter: retryAfter, Err: err}
}

// RetryAfter extracts the Retry-After duration from an HTTP response.
// Returns 0 if the header is not present or cannot be parsed.
func RetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// HTTP-date form (RFC 7231)
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
