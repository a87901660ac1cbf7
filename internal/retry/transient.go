package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	ai "github.com/spetersoncode/relay"
)

// transientMessages catch failures that reach us only as text, typically
// from SDKs that flatten transport errors.
var transientMessages = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"bad gateway",
}

// Transient reports whether a call that failed with err is worth repeating.
//
// A categorized *relay.Error is trusted as is. Other errors are retried
// when they carry a 429 or 5xx status, time out, or look like a dropped
// connection.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := ai.AsError(err); ok {
		return e.Temporary()
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		if code := coded.StatusCode(); code == 429 || code/100 == 5 {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
