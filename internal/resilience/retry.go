package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls fixed-cadence retry. The external services this
// pipeline talks to impose a courtesy spacing between calls, so retries wait
// the same fixed delay as ordinary calls rather than backing off
// exponentially.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// Delay is the wait before each retry.
	Delay time.Duration

	// ShouldRetry overrides the default IsTransient check when set.
	ShouldRetry func(err error) bool

	// Sleep overrides the wait implementation; tests inject a fake.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do executes fn, retrying transient failures up to the configured bound.
// The last error is returned unmodified once the bound is exhausted or the
// failure is not retryable. Context cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !shouldRetry(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		zap.L().Warn("retrying after transient failure",
			zap.Int("attempt", attempt),
			zap.Duration("delay", cfg.Delay),
			zap.Error(lastErr),
		)
		if err := sleep(ctx, cfg.Delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
