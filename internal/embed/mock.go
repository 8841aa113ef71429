package embed

import (
	"context"
	"hash/fnv"
	"math"
)

// Mock generates deterministic embeddings from a text hash. Useful in tests
// and for running the pipeline without any embedding backend.
type Mock struct {
	dims int
}

var _ Provider = (*Mock)(nil)

// NewMock creates a mock embedder with the given dimensionality (default
// 384).
func NewMock(dims int) *Mock {
	if dims <= 0 {
		dims = 384
	}
	return &Mock{dims: dims}
}

func (e *Mock) Name() string    { return "mock" }
func (e *Mock) Dimensions() int { return e.dims }

// Embed returns a normalized pseudo-random vector seeded by the text hash.
func (e *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, e.dims)
	var sum float64
	for i := range vec {
		v := math.Sin(float64(seed)*0.1 + float64(i))
		vec[i] = float32(v)
		sum += v * v
	}
	norm := float32(math.Sqrt(sum))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}
