package embed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// retryProvider decorates a Provider with capped exponential-backoff retry.
type retryProvider struct {
	Provider
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	retryable   func(error) bool
}

// RetryOption configures WithRetry.
type RetryOption func(*retryProvider)

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(n int) RetryOption {
	return func(r *retryProvider) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and ceiling for the exponential delay.
func WithBackoff(base, max time.Duration) RetryOption {
	return func(r *retryProvider) {
		if base > 0 {
			r.baseDelay = base
		}
		if max > 0 {
			r.maxDelay = max
		}
	}
}

// WithRetryIf replaces the default rate-limit-only retry predicate.
func WithRetryIf(f func(error) bool) RetryOption {
	return func(r *retryProvider) {
		if f != nil {
			r.retryable = f
		}
	}
}

// IsRateLimit reports whether err is a provider rate-limit error. It is the
// default retry predicate.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// WithRetry wraps p so rate-limited calls are retried with exponential
// backoff and jitter before the error is propagated. A nil p stays nil.
func WithRetry(p Provider, opts ...RetryOption) Provider {
	if p == nil {
		return nil
	}
	r := &retryProvider{
		Provider:    p,
		maxAttempts: 6,
		baseDelay:   time.Second,
		maxDelay:    30 * time.Second,
		retryable:   IsRateLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *retryProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return retryCall(ctx, r, func() ([]float32, error) {
		return r.Provider.Embed(ctx, text)
	})
}

func (r *retryProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return retryCall(ctx, r, func() ([][]float32, error) {
		return r.Provider.EmbedBatch(ctx, texts)
	})
}

func retryCall[T any](ctx context.Context, r *retryProvider, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, r.delay(attempt-1, lastErr)); err != nil {
				return zero, err
			}
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !r.retryable(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("embed: giving up after %d attempts: %w", r.maxAttempts, lastErr)
}

// delay returns the wait before retrying attempt n (0-indexed), honoring a
// server-provided Retry-After when it exceeds the computed backoff.
func (r *retryProvider) delay(attempt int, lastErr error) time.Duration {
	d := r.baseDelay << uint(attempt)
	if d > r.maxDelay || d <= 0 {
		d = r.maxDelay
	}
	d += time.Duration(rand.Int63n(int64(d)/2 + 1))
	var rl *RateLimitError
	if errors.As(lastErr, &rl) && rl.RetryAfter > d {
		d = rl.RetryAfter
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
