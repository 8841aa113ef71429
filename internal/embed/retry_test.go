package embed

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyProvider fails with failures rate-limit errors before succeeding.
type flakyProvider struct {
	Mock
	calls    int
	failures int
	err      error
}

func (f *flakyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.Mock.Embed(ctx, text)
}

func (f *flakyProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.Mock.EmbedBatch(ctx, texts)
}

func fastRetry(p Provider, attempts int) Provider {
	return WithRetry(p, WithMaxAttempts(attempts), WithBackoff(time.Millisecond, 5*time.Millisecond))
}

func TestWithRetry_RecoversFromRateLimit(t *testing.T) {
	f := &flakyProvider{Mock: *NewMock(8), failures: 2, err: &RateLimitError{Provider: "test"}}
	p := fastRetry(f, 5)

	vec, err := p.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) == 0 {
		t.Errorf("expected a vector after retries")
	}
	if f.calls != 3 {
		t.Errorf("expected 3 calls (2 failures + success), got %d", f.calls)
	}
}

func TestWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	f := &flakyProvider{Mock: *NewMock(8), failures: 100, err: &RateLimitError{Provider: "test"}}
	p := fastRetry(f, 3)

	_, err := p.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error after exhausting attempts, got nil")
	}
	if f.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", f.calls)
	}
	if !IsRateLimit(err) {
		t.Errorf("expected wrapped rate limit error, got %v", err)
	}
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	f := &flakyProvider{Mock: *NewMock(8), failures: 100, err: errors.New("bad request")}
	p := fastRetry(f, 5)

	_, err := p.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if f.calls != 1 {
		t.Errorf("expected a single attempt for a non-retryable error, got %d", f.calls)
	}
}

func TestWithRetry_BatchPathRetries(t *testing.T) {
	f := &flakyProvider{Mock: *NewMock(8), failures: 1, err: &RateLimitError{Provider: "test"}}
	p := fastRetry(f, 5)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(vecs))
	}
	if f.calls != 2 {
		t.Errorf("expected 2 calls, got %d", f.calls)
	}
}

func TestWithRetry_ContextCancelStopsWaiting(t *testing.T) {
	f := &flakyProvider{Mock: *NewMock(8), failures: 100, err: &RateLimitError{Provider: "test"}}
	p := WithRetry(f, WithMaxAttempts(10), WithBackoff(time.Minute, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Embed(ctx, "text")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected prompt cancellation, waited %s", elapsed)
	}
}

func TestWithRetry_NilProviderStaysNil(t *testing.T) {
	if p := WithRetry(nil); p != nil {
		t.Errorf("expected nil, got %v", p)
	}
}

func TestIsRateLimit_Wrapped(t *testing.T) {
	err := &RateLimitError{Provider: "x"}
	if !IsRateLimit(err) {
		t.Errorf("expected direct rate limit error to match")
	}
	if IsRateLimit(errors.New("other")) {
		t.Errorf("expected plain error not to match")
	}
}
