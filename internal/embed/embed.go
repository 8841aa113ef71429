// Package embed computes embedding vectors for section text. Providers are
// thin HTTP clients; cross-cutting concerns like rate-limit retry and batch
// sizing are layered on top of the Provider interface.
package embed

import (
	"context"
	"fmt"
	"time"
)

// Provider computes embedding vectors.
type Provider interface {
	// Name identifies the provider for logs.
	Name() string
	// Dimensions returns the vector dimensionality this provider produces.
	Dimensions() int
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RateLimitError reports that the provider refused the call due to rate
// limiting. RetryAfter is the server-suggested wait, zero when absent.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// New constructs a provider by kind: "openai", "ollama", "mock" or "none".
// A "none" kind returns nil, meaning embeddings are skipped entirely.
func New(kind, baseURL, apiKey, model string, dims int) (Provider, error) {
	switch kind {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("embed: openai provider requires an api key")
		}
		return NewOpenAI(baseURL, apiKey, model, dims), nil
	case "ollama":
		return NewOllama(baseURL, model, dims), nil
	case "mock":
		return NewMock(dims), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("embed: unknown provider kind %q", kind)
	}
}
