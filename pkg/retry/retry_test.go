package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	lastErr := errors.New("still broken")
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return lastErr
	})
	require.Error(t, err)
	assert.Equal(t, lastErr, err)
	assert.Equal(t, 3, calls, "MaxRetries=2 means three attempts total")
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, &Config{MaxRetries: 5, InitialDelay: time.Minute, MaxDelay: time.Minute, Multiplier: 2}, func() error {
		calls++
		cancel()
		return errors.New("timeout")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	v, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("timeout")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

type permanentErr struct{ msg string }

func (e *permanentErr) Error() string     { return e.msg }
func (e *permanentErr) IsRetryable() bool { return false }

type transientErr struct{ msg string }

func (e *transientErr) Error() string     { return e.msg }
func (e *transientErr) IsRetryable() bool { return true }

func TestDoIfRetryable_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return &permanentErr{msg: "invalid range"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors must not be retried")
}

func TestDoIfRetryable_RetriesTransientError(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return &transientErr{msg: "whatever"}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoIfRetryable_PropagatesErrorIntact(t *testing.T) {
	underlying := &transientErr{msg: "503 backend error"}
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		return fmt.Errorf("append: %w", underlying)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, underlying)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limit", errors.New("googleapi: Error 429: rate limit exceeded"), true},
		{"server error", errors.New("googleapi: Error 503: service unavailable"), true},
		{"bad request", errors.New("googleapi: Error 400: invalid valueInputOption"), false},
		{"explicit permanent", &permanentErr{msg: "connection refused"}, false},
		{"explicit transient", &transientErr{msg: "schema mismatch"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
