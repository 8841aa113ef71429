package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestMock_DeterministicAndNormalized(t *testing.T) {
	m := NewMock(64)
	ctx := context.Background()

	a, err := m.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := m.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical vectors for identical text")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a))
	}

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-3 {
		t.Errorf("expected unit-norm vector, got norm^2 %f", sum)
	}

	c, err := m.Embed(ctx, "different text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reflect.DeepEqual(a, c) {
		t.Errorf("expected different vectors for different text")
	}
}

func TestOpenAI_EmbedBatch(t *testing.T) {
	var gotAuth string
	var gotReq openaiEmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{1, 0}},
				{"embedding": []float32{0, 1}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAI(srv.URL, "test-key", "test-model", 2)
	vecs, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("expected vectors in request order, got %v", vecs)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Input) != 2 {
		t.Errorf("unexpected request body: %+v", gotReq)
	}
}

func TestOpenAI_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewOpenAI(srv.URL, "k", "m", 2)
	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) || rl.RetryAfter != 7*time.Second {
		t.Errorf("expected RetryAfter 7s, got %v", err)
	}
}

func TestOpenAI_VectorCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	e := NewOpenAI(srv.URL, "k", "m", 1)
	_, err := e.EmbedBatch(context.Background(), []string{"one", "two"})
	if err == nil {
		t.Fatal("expected error for mismatched vector count, got nil")
	}
}

func TestNew_ProviderSelection(t *testing.T) {
	p, err := New("mock", "", "", "", 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "mock" || p.Dimensions() != 16 {
		t.Errorf("expected mock provider with 16 dims, got %s/%d", p.Name(), p.Dimensions())
	}

	p, err = New("none", "", "", "", 0)
	if err != nil || p != nil {
		t.Errorf("expected nil provider for none, got %v, %v", p, err)
	}

	if _, err = New("openai", "", "", "", 0); err == nil {
		t.Errorf("expected error for openai without api key")
	}

	if _, err = New("bogus", "", "", "", 0); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}
