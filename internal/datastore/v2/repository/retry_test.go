package repository

import (
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOnConflict(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond}

	t.Run("succeeds after conflicts", func(t *testing.T) {
		calls := 0
		var retries int
		p := policy
		p.OnRetry = func(error, time.Duration) { retries++ }
		err := RetryOnConflict(t.Context(), p, func() error {
			calls++
			if calls < 3 {
				return errors.Join(ErrConflict, errors.NewStd("UNIQUE constraint failed"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := RetryOnConflict(t.Context(), policy, func() error {
			calls++
			return ErrConflict
		})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 4, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		boom := errors.NewStd("boom")
		calls := 0
		err := RetryOnConflict(t.Context(), policy, func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero retries runs once", func(t *testing.T) {
		calls := 0
		err := RetryOnConflict(t.Context(), RetryPolicy{}, func() error {
			calls++
			return ErrConflict
		})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 1, calls)
	})
}
