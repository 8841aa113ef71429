package embed

import (
	"context"
	"strings"
	"testing"
)

// recordingProvider captures the batches it is asked to embed and returns a
// one-dimensional vector encoding each text's input position.
type recordingProvider struct {
	Mock
	batches [][]string
	seen    int
}

func (r *recordingProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	batch := make([]string, len(texts))
	copy(batch, texts)
	r.batches = append(r.batches, batch)

	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(r.seen)}
		r.seen++
	}
	return vecs, nil
}

func TestBatcher_SplitsOnMaxItems(t *testing.T) {
	rec := &recordingProvider{}
	b := NewBatcher(rec, 1_000_000, 16)

	texts := make([]string, 40)
	for i := range texts {
		texts[i] = "short text"
	}
	vecs, err := b.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 40 {
		t.Fatalf("expected 40 vectors, got %d", len(vecs))
	}

	wantSizes := []int{16, 16, 8}
	if len(rec.batches) != len(wantSizes) {
		t.Fatalf("expected %d batches, got %d", len(wantSizes), len(rec.batches))
	}
	for i, want := range wantSizes {
		if len(rec.batches[i]) != want {
			t.Errorf("batch %d: expected %d items, got %d", i, want, len(rec.batches[i]))
		}
	}
}

func TestBatcher_SplitsOnTokenBudget(t *testing.T) {
	rec := &recordingProvider{}
	// Each text estimates to 125 tokens; the budget fits two per batch.
	b := NewBatcher(rec, 300, 16)

	text := strings.Repeat("word ", 100)
	vecs, err := b.EmbedAll(context.Background(), []string{text, text, text, text, text})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}

	wantSizes := []int{2, 2, 1}
	if len(rec.batches) != len(wantSizes) {
		t.Fatalf("expected %d batches, got %d", len(wantSizes), len(rec.batches))
	}
	for i, want := range wantSizes {
		if len(rec.batches[i]) != want {
			t.Errorf("batch %d: expected %d items, got %d", i, want, len(rec.batches[i]))
		}
	}
}

func TestBatcher_OversizedTextGoesAlone(t *testing.T) {
	rec := &recordingProvider{}
	b := NewBatcher(rec, 100, 16)

	huge := strings.Repeat("word ", 500) // far over the budget by itself
	vecs, err := b.EmbedAll(context.Background(), []string{"small", huge, "small"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if len(rec.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(rec.batches))
	}
	if len(rec.batches[1]) != 1 || rec.batches[1][0] != huge {
		t.Errorf("expected the oversized text in its own batch")
	}
}

func TestBatcher_PreservesOrder(t *testing.T) {
	rec := &recordingProvider{}
	b := NewBatcher(rec, 1_000_000, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	vecs, err := b.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, vec := range vecs {
		if len(vec) != 1 || vec[0] != float32(i) {
			t.Errorf("position %d: expected vector [%d], got %v", i, i, vec)
		}
	}
}

func TestBatcher_EmptyInput(t *testing.T) {
	rec := &recordingProvider{}
	b := NewBatcher(rec, 100, 4)
	vecs, err := b.EmbedAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("expected no vectors, got %d", len(vecs))
	}
	if len(rec.batches) != 0 {
		t.Errorf("expected no provider calls, got %d", len(rec.batches))
	}
}
