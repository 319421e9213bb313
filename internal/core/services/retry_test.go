package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	transient := errors.New("flaky")
	calls := 0

	err := Retry(context.Background(), 3, time.Millisecond,
		func(err error) bool { return errors.Is(err, transient) },
		func() error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0

	err := Retry(context.Background(), 5, time.Millisecond,
		func(error) bool { return false },
		func() error {
			calls++
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	transient := errors.New("flaky")
	calls := 0

	err := Retry(context.Background(), 3, time.Millisecond,
		func(error) bool { return true },
		func() error {
			calls++
			return transient
		})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Minute,
		func(error) bool { return true },
		func() error { return errors.New("flaky") })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryTreatsZeroAttemptsAsOne(t *testing.T) {
	calls := 0

	err := Retry(context.Background(), 0, time.Millisecond,
		func(error) bool { return true },
		func() error {
			calls++
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
