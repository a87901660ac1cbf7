// Package retry retries backend submissions that fail with transient
// errors. Only stream establishment is retried; once events flow,
// failures go to the consumer as they happen.
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy is an exponential backoff schedule.
type Policy struct {
	// Attempts bounds the number of calls, the first one included.
	// Values below 1 mean a single call.
	Attempts int
	// Base is the wait after the first failure.
	Base time.Duration
	// Cap bounds any single wait. Zero means no bound.
	Cap time.Duration
	// Factor multiplies the wait after each further failure.
	Factor float64
	// Jitter spreads each wait by up to this fraction either way.
	Jitter float64
}

// DefaultPolicy makes up to 10 attempts, waiting 1s, 2s, 4s and so on
// up to a minute, with 10% jitter.
func DefaultPolicy() Policy {
	return Policy{Attempts: 10, Base: time.Second, Cap: time.Minute, Factor: 2, Jitter: 0.1}
}

// Once disables retries.
func Once() Policy {
	return Policy{Attempts: 1}
}

// Backoff returns the wait after the n-th failure, counting from 0.
func (p Policy) Backoff(n int) time.Duration {
	wait := float64(p.Base) * math.Pow(p.Factor, float64(max(n, 0)))
	if p.Cap > 0 {
		wait = math.Min(wait, float64(p.Cap))
	}
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(wait)
}

func (p Policy) attempts() int {
	return max(p.Attempts, 1)
}
