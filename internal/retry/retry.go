package retry

import (
	"context"
	"time"

	ai "github.com/spetersoncode/relay"
)

// Notify is told about every failed attempt that will be retried.
// attempt counts from 1.
type Notify func(attempt int, wait time.Duration, err error)

// Do calls fn until it succeeds, fails with a non-transient error, or
// the policy runs out of attempts. The last error is returned. Waiting
// stops early with ctx.Err() when ctx is done.
func Do[T any](ctx context.Context, p Policy, notify Notify, fn func() (T, error)) (T, error) {
	var zero T
	for n := 0; ; n++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if n+1 >= p.attempts() || !Transient(err) {
			return zero, err
		}

		wait := max(p.Backoff(n), ai.RetryAfterOf(err))
		if notify != nil {
			notify(n+1, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
