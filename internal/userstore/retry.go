package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/solace/internal/profile"
)

// RetryPolicy bounds retries of a store operation. Attempt i (0-based)
// waits Backoff*(i+1) before the next one.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry is three attempts with a one second linear backoff.
var DefaultRetry = RetryPolicy{Attempts: 3, Backoff: time.Second}

// Do runs fn until it succeeds, returns a permanent error, or the attempts
// run out. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || permanent(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		timer := time.NewTimer(p.Backoff * time.Duration(i+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, profile.ErrInvalidRecord) ||
		errors.Is(err, errConnectorClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
