package retry_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ai-judge/ai-judge/internal/logging"
	"github.com/ai-judge/ai-judge/internal/retry"
)

func testRetryConfig() retry.RetryConfig {
	return retry.RetryConfig{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func alwaysRetryable(err error) bool {
	return err != nil
}

func TestRetryWithBackoff(t *testing.T) {
	logger := logging.FallbackLogger()

	t.Run("success on first attempt", func(t *testing.T) {
		var attempts atomic.Int32
		result, err := retry.RetryWithBackoff(context.Background(), logger, testRetryConfig(), "test_op", alwaysRetryable, func() (string, error) {
			attempts.Add(1)
			return "ok", nil
		})
		if err != nil || result != "ok" {
			t.Fatalf("expected ok, got %q, %v", result, err)
		}
		if got := attempts.Load(); got != 1 {
			t.Fatalf("expected 1 attempt, got %d", got)
		}
	})

	t.Run("success after retries", func(t *testing.T) {
		var attempts atomic.Int32
		result, err := retry.RetryWithBackoff(context.Background(), logger, testRetryConfig(), "test_op", alwaysRetryable, func() (string, error) {
			if attempts.Add(1) < 3 {
				return "", errors.New("429 too many requests")
			}
			return "recovered", nil
		})
		if err != nil || result != "recovered" {
			t.Fatalf("expected recovered, got %q, %v", result, err)
		}
		if got := attempts.Load(); got != 3 {
			t.Fatalf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("exhausted retries wrap the last error", func(t *testing.T) {
		var attempts atomic.Int32
		last := errors.New("503 unavailable")
		_, err := retry.RetryWithBackoff(context.Background(), logger, testRetryConfig(), "test_op", alwaysRetryable, func() (string, error) {
			attempts.Add(1)
			return "", last
		})
		if !errors.Is(err, last) {
			t.Fatalf("expected wrapped %v, got %v", last, err)
		}
		if !strings.Contains(err.Error(), "after 3 retries") {
			t.Fatalf("expected the retry count in %q", err.Error())
		}
		if got := attempts.Load(); got != 4 {
			t.Fatalf("expected 4 attempts, got %d", got)
		}
	})

	t.Run("non retryable error returns immediately", func(t *testing.T) {
		var attempts atomic.Int32
		bad := errors.New("400 bad request")
		_, err := retry.RetryWithBackoff(context.Background(), logger, testRetryConfig(), "test_op", func(error) bool { return false }, func() (string, error) {
			attempts.Add(1)
			return "", bad
		})
		if err != bad {
			t.Fatalf("expected the original error, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Fatalf("expected 1 attempt, got %d", got)
		}
	})

	t.Run("zero retries returns the error unchanged", func(t *testing.T) {
		cfg := testRetryConfig()
		cfg.MaxRetries = 0
		failure := errors.New("500 internal")
		_, err := retry.RetryWithBackoff(context.Background(), logger, cfg, "test_op", alwaysRetryable, func() (string, error) {
			return "", failure
		})
		if err != failure {
			t.Fatalf("expected the original error, got %v", err)
		}
	})

	t.Run("context cancellation stops the backoff", func(t *testing.T) {
		cfg := testRetryConfig()
		cfg.BaseBackoff = time.Hour
		cfg.MaxBackoff = time.Hour
		ctx, cancel := context.WithCancel(context.Background())
		var attempts atomic.Int32
		_, err := retry.RetryWithBackoff(ctx, logger, cfg, "test_op", alwaysRetryable, func() (string, error) {
			attempts.Add(1)
			cancel()
			return "", errors.New("429")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Fatalf("expected 1 attempt, got %d", got)
		}
	})
}

func TestRetryConfig(t *testing.T) {
	cfg := retry.NewRetryConfig(-1, time.Second)
	if cfg.MaxRetries != 0 {
		t.Fatalf("expected negative retries to clamp to 0, got %d", cfg.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (retry.RetryConfig{MaxRetries: -1}).Validate(); err == nil {
		t.Fatalf("expected a validation error for negative retries")
	}
}
