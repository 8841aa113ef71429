package embed

import "context"

// Batcher groups texts into provider calls bounded by a token budget and a
// maximum batch size, the limits batch embedding endpoints impose per
// request.
type Batcher struct {
	provider    Provider
	tokenBudget int
	maxItems    int
}

// NewBatcher creates a Batcher over p. Non-positive limits fall back to the
// defaults (8100 tokens, 16 items).
func NewBatcher(p Provider, tokenBudget, maxItems int) *Batcher {
	if tokenBudget <= 0 {
		tokenBudget = 8100
	}
	if maxItems <= 0 {
		maxItems = 16
	}
	return &Batcher{provider: p, tokenBudget: tokenBudget, maxItems: maxItems}
}

// EmbedAll embeds every text, greedily packing batches up to the limits. The
// result preserves input order; a text whose estimate alone exceeds the
// budget is sent as a batch of one.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(texts))
	var batch []string
	tokens := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out, err := b.provider.EmbedBatch(ctx, batch)
		if err != nil {
			return err
		}
		vecs = append(vecs, out...)
		batch = batch[:0]
		tokens = 0
		return nil
	}

	for _, text := range texts {
		t := EstimateTokens(text)
		if len(batch) > 0 && (tokens+t > b.tokenBudget || len(batch) >= b.maxItems) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		tokens += t
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return vecs, nil
}
