package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(attempts int) *Config {
	return &Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestExponentialBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var retried []int

	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

	err := NewExponentialBackoff(cfg).Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestExponentialBackoff_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("password authentication failed")

	err := NewExponentialBackoff(fastConfig(5)).Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.False(t, IsMaxRetriesExceeded(err))
}

func TestFixedDelay_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := NewFixedDelay(fastConfig(3)).Execute(context.Background(), func(context.Context) error {
		calls++
		return errors.New("i/o timeout")
	})

	assert.True(t, IsMaxRetriesExceeded(err))
	assert.Equal(t, 3, calls)
	assert.Contains(t, errors.Unwrap(err).Error(), "timeout")
}

func TestExecute_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	err := NewExponentialBackoff(cfg).Execute(ctx, func(context.Context) error {
		return errors.New("connection reset by peer")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay_CapsAtMax(t *testing.T) {
	eb := NewExponentialBackoff(&Config{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2})

	assert.Equal(t, time.Second, eb.calculateDelay(1))
	assert.Equal(t, 4*time.Second, eb.calculateDelay(3))
	assert.Equal(t, 5*time.Second, eb.calculateDelay(6))
}
