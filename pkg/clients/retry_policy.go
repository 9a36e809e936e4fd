package clients

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ajitpratap0/concord/pkg/config"
	"github.com/ajitpratap0/concord/pkg/errors"
	"github.com/ajitpratap0/concord/pkg/metrics"
)

// RetryPolicy defines retry behavior with exponential backoff and jitter.
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RandomizeFactor float64
}

// DefaultRetryPolicy returns three attempts starting at 500ms.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     3,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0.25,
	}
}

// RetryPolicyFromConfig builds a policy from the reliability section.
func RetryPolicyFromConfig(rc config.ReliabilityConfig) *RetryPolicy {
	p := DefaultRetryPolicy()
	if rc.RetryAttempts > 0 {
		p.MaxAttempts = rc.RetryAttempts
	}
	if rc.RetryDelay > 0 {
		p.InitialDelay = rc.RetryDelay
	}
	if rc.RetryMultiplier >= 1 {
		p.Multiplier = rc.RetryMultiplier
	}
	if rc.MaxRetryDelay > 0 {
		p.MaxDelay = rc.MaxRetryDelay
	}
	return p
}

// Execute runs fn until it succeeds, returns an error shouldRetry rejects,
// or the attempts run out. A nil shouldRetry uses errors.IsRetryable.
func (rp *RetryPolicy) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error, shouldRetry func(error) bool) error {
	if shouldRetry == nil {
		shouldRetry = errors.IsRetryable
	}
	attempts := max(rp.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.Retries.WithLabelValues(operation).Inc()
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(rp.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// Delay returns the wait before retrying after attempt (zero based).
func (rp *RetryPolicy) Delay(attempt int) time.Duration {
	delay := float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt))
	if rp.MaxDelay > 0 && delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	if rp.RandomizeFactor > 0 {
		delta := delay * rp.RandomizeFactor
		minDelay := delay - delta
		maxDelay := delay + delta
		delay = minDelay + (rand.Float64() * (maxDelay - minDelay))
	}

	return time.Duration(delay)
}
