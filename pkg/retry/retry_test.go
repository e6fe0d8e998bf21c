package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	sentinel := errors.New("down")
	err := Do(context.Background(), cfg, func() error {
		calls++
		return sentinel
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_LinearDelayGrowth(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, cfg.delayFor(1))
	assert.Equal(t, 200*time.Millisecond, cfg.delayFor(2))
	// capped
	assert.Equal(t, 250*time.Millisecond, cfg.delayFor(3))
}

func TestDoWithLog_ReportsEachFailure(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BaseDelay: time.Millisecond}

	var attempts []int
	err := DoWithLog(context.Background(), cfg, "backend", func() error {
		return errors.New("nope")
	}, func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
	})

	require.Error(t, err)
	// the final attempt is not logged, it is returned
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Contains(t, err.Error(), "backend")
}

func TestDo_ContextCancelled(t *testing.T) {
	cfg := Config{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
