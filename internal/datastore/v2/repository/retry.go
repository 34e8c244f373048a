package repository

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/homeledger/incident-engine/internal/errors"
)

// RetryPolicy bounds how often an operation that lost a write race is rerun.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	// OnRetry is called before each retry.
	OnRetry func(err error, wait time.Duration)
}

// RetryOnConflict runs fn and reruns it from scratch while it fails with
// ErrConflict, up to policy.MaxRetries extra attempts. Other errors are
// returned immediately.
func RetryOnConflict(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxRetries <= 0 {
		return fn()
	}

	eb := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		eb.InitialInterval = policy.InitialInterval
	}
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(policy.MaxRetries)), ctx)

	op := func() error {
		err := fn()
		if err != nil && !errors.Is(err, ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.RetryNotify(op, b, policy.OnRetry)
}
