package pipeline

import (
	"errors"
	"math/rand"
	"time"

	"github.com/searchkit/docindex/internal/index"
	"github.com/searchkit/docindex/internal/layout"
)

// IsRetryable reports whether an error is a transient upstream failure worth
// retrying: throttling or server errors from the layout service or a remote
// index backend.
func IsRetryable(err error) bool {
	var indexErr *index.TransientError
	if errors.As(err, &indexErr) {
		return true
	}
	var layoutErr *layout.TransientError
	return errors.As(err, &layoutErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
