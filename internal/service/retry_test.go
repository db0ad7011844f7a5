package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestRetrySucceedsAfterTwoRateLimits(t *testing.T) {
	rec := &recordingSleep{}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Sleep: rec.sleep}

	calls := 0
	out, err := WithRateLimitRetry(context.Background(), policy, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, rec.waits)
}

func TestRetryExhausted(t *testing.T) {
	rec := &recordingSleep{}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Sleep: rec.sleep}

	calls := 0
	_, err := WithRateLimitRetry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
	})

	assert.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.waits, 2)
}

func TestRetryPropagatesOtherErrors(t *testing.T) {
	rec := &recordingSleep{}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: rec.sleep}
	boom := errors.New("boom")

	calls := 0
	_, err := WithRateLimitRetry(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}
	calls := 0
	_, err := WithRateLimitRetry(ctx, policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, &APIError{StatusCode: http.StatusTooManyRequests}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&APIError{StatusCode: 429}))
	assert.True(t, IsRateLimited(&APIError{StatusCode: 400, Status: "RESOURCE_EXHAUSTED"}))
	assert.True(t, IsRateLimited(errors.New("upstream said 429")))
	assert.False(t, IsRateLimited(errors.New("bad request")))
	assert.False(t, IsRateLimited(nil))
}
