package service

import (
	"ai_course_backend/pkg/logger"
	"ai_course_backend/pkg/monitoring"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrRateLimitExceeded 重试耗尽后返回给调用方
var ErrRateLimitExceeded = errors.New("rate limit exceeded. Please wait a few minutes and try again")

// SleepFunc 可被 ctx 打断的等待，测试中替换
type SleepFunc func(ctx context.Context, d time.Duration) error

func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy 第 n 次失败后等待 n*BaseDelay
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       SleepFunc
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Sleep: ContextSleep}
}

// IsRateLimited 429 或提示配额耗尽的错误
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// WithRateLimitRetry 只对限流错误重试，其余错误立即返回
func WithRateLimitRetry[T any](ctx context.Context, p RetryPolicy, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}
		if attempt == attempts {
			logger.Log.Warn("AI rate limit retries exhausted", zap.Int("attempts", attempt), zap.Error(err))
			break
		}

		wait := time.Duration(attempt) * p.BaseDelay
		logger.Log.Warn("AI rate limited, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)
		monitoring.AIRetries.Inc()
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, ErrRateLimitExceeded
}
