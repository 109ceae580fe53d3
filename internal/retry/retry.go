package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"
)

// RetryConfig configures the retry of transient provider errors.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt, 0 disables retries
	MaxRetries int
	// BaseBackoff is the initial backoff duration
	BaseBackoff time.Duration
	// MaxBackoff caps the exponential backoff
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each backoff
	MaxJitter time.Duration
}

func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// NewRetryConfig derives a configuration from the number of retries and the
// base backoff, the cap is thirty times the base.
func NewRetryConfig(maxRetries int, baseBackoff time.Duration) RetryConfig {
	return RetryConfig{
		MaxRetries:  max(maxRetries, 0),
		BaseBackoff: baseBackoff,
		MaxBackoff:  30 * baseBackoff,
		MaxJitter:   baseBackoff / 2,
	}
}

// RetryWithBackoff calls fn until it succeeds, fails with an error that
// isRetryable rejects, or the retries are exhausted. Backoff doubles after
// each attempt.
func RetryWithBackoff[T any](ctx context.Context, logger *slog.Logger, cfg RetryConfig, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryable(lastErr) {
			return result, lastErr
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		backoff := min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff)

		var jitter time.Duration
		if cfg.MaxJitter > 0 {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(cfg.MaxJitter)))
			if err == nil {
				jitter = time.Duration(n.Int64())
			}
		}

		logger.Warn("Transient error, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"backoff", (backoff + jitter).String(),
			"error", lastErr.Error(),
		)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}

	if cfg.MaxRetries == 0 {
		return result, lastErr
	}
	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}
