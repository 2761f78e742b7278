package eventlog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

func Test_RetryWithExponentialBackoff_SucceedsImmediately(t *testing.T) {
	attempts := 0

	err := eventlog.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func Test_RetryWithExponentialBackoff_RetriesOnConcurrencyConflict(t *testing.T) {
	attempts := 0

	err := eventlog.RetryWithExponentialBackoff(
		context.Background(),
		func(_ context.Context) error {
			attempts++
			if attempts < 3 {
				return eventlog.ErrConcurrencyConflict
			}
			return nil
		},
		eventlog.WithBaseDelay(time.Millisecond),
		eventlog.WithJitterFactor(0),
	)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func Test_RetryWithExponentialBackoff_FailsFastOnPermanentError(t *testing.T) {
	permanentErr := errors.New("permanent failure")
	attempts := 0

	err := eventlog.RetryWithExponentialBackoff(context.Background(), func(_ context.Context) error {
		attempts++
		return permanentErr
	})

	assert.ErrorIs(t, err, permanentErr)
	assert.Equal(t, 1, attempts)
}

func Test_RetryWithExponentialBackoff_ExhaustsMaxAttempts(t *testing.T) {
	attempts := 0

	err := eventlog.RetryWithExponentialBackoff(
		context.Background(),
		func(_ context.Context) error {
			attempts++
			return eventlog.ErrConcurrencyConflict
		},
		eventlog.WithMaxAttempts(4),
		eventlog.WithBaseDelay(time.Millisecond),
		eventlog.WithJitterFactor(0),
	)

	assert.ErrorIs(t, err, eventlog.ErrConcurrencyConflict)
	assert.Equal(t, 4, attempts)
}

func Test_RetryWithExponentialBackoff_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := eventlog.RetryWithExponentialBackoff(
		ctx,
		func(_ context.Context) error {
			cancel()
			return eventlog.ErrConcurrencyConflict
		},
		eventlog.WithBaseDelay(time.Second),
	)

	assert.ErrorIs(t, err, context.Canceled)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	tests := []struct {
		name        string
		option      eventlog.RetryOption
		expectedErr error
	}{
		{
			name:        "non_positive_max_attempts",
			option:      eventlog.WithMaxAttempts(0),
			expectedErr: eventlog.ErrInvalidMaxAttempts,
		},
		{
			name:        "negative_base_delay",
			option:      eventlog.WithBaseDelay(-time.Millisecond),
			expectedErr: eventlog.ErrNegativeBaseDelay,
		},
		{
			name:        "jitter_factor_above_one",
			option:      eventlog.WithJitterFactor(1.5),
			expectedErr: eventlog.ErrInvalidJitterFactor,
		},
		{
			name:        "nil_metrics_collector",
			option:      eventlog.WithRetryMetrics(nil, "append"),
			expectedErr: eventlog.ErrNilMetricsCollector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eventlog.RetryWithExponentialBackoff(
				context.Background(),
				func(_ context.Context) error { return nil },
				tt.option,
			)

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}
