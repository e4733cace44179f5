package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvery_DoneOnFirstCheck(t *testing.T) {
	start := time.Now()
	result := Every(context.Background(), PollConfig{Interval: time.Hour, Timeout: time.Hour},
		func(ctx context.Context, attempt int) (bool, error) {
			return true, nil
		})

	assert.True(t, result.Done)
	assert.NoError(t, result.Err())
	assert.Equal(t, 1, result.Attempts)
	assert.Less(t, time.Since(start), time.Second, "a done first check must not wait an interval")
}

func TestEvery_PollsUntilDone(t *testing.T) {
	result := Every(context.Background(), PollConfig{Interval: time.Millisecond, Timeout: 5 * time.Second},
		func(ctx context.Context, attempt int) (bool, error) {
			return attempt == 3, nil
		})

	assert.True(t, result.Done)
	assert.Equal(t, 3, result.Attempts)
}

func TestEvery_CheckErrorStops(t *testing.T) {
	boom := errors.New("boom")
	result := Every(context.Background(), PollConfig{Interval: time.Millisecond, Timeout: 5 * time.Second},
		func(ctx context.Context, attempt int) (bool, error) {
			if attempt == 2 {
				return false, boom
			}
			return false, nil
		})

	assert.False(t, result.Done)
	assert.ErrorIs(t, result.Err(), boom)
	assert.Equal(t, 2, result.Attempts)
	assert.False(t, result.IsTimeout())
}

func TestEvery_Timeout(t *testing.T) {
	result := Every(context.Background(), PollConfig{Interval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond},
		func(ctx context.Context, attempt int) (bool, error) {
			return false, nil
		})

	assert.False(t, result.Done)
	assert.True(t, result.IsTimeout())
	assert.ErrorIs(t, result.Err(), ErrTimeout)
	assert.GreaterOrEqual(t, result.Attempts, 2)
}

func TestEvery_TimeoutDuringCheck(t *testing.T) {
	result := Every(context.Background(), PollConfig{Interval: time.Millisecond, Timeout: 20 * time.Millisecond},
		func(ctx context.Context, attempt int) (bool, error) {
			<-ctx.Done()
			return false, ctx.Err()
		})

	assert.True(t, result.IsTimeout())
}

func TestEvery_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	result := Every(ctx, PollConfig{Interval: 10 * time.Millisecond, Timeout: time.Hour},
		func(ctx context.Context, attempt int) (bool, error) {
			if attempt == 2 {
				cancel()
			}
			return false, nil
		})

	assert.ErrorIs(t, result.Err(), context.Canceled)
	assert.False(t, result.IsTimeout())
}
