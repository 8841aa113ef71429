package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama calls a local Ollama instance for embeddings, one prompt per
// request.
type Ollama struct {
	baseURL    string
	model      string
	dims       int
	httpClient *http.Client
}

var _ Provider = (*Ollama)(nil)

// NewOllama creates an Ollama embedding client. baseURL defaults to the
// local daemon; dims defaults to 768 (nomic-embed-text).
func NewOllama(baseURL, model string, dims int) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dims <= 0 {
		dims = 768
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		// Local models can be slow to load.
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *Ollama) Name() string    { return "ollama" }
func (e *Ollama) Dimensions() int { return e.dims }

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding for a single text.
func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &RateLimitError{Provider: e.Name()}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama api status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(apiResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return apiResp.Embedding, nil
}

// EmbedBatch embeds texts sequentially; the Ollama embeddings endpoint takes
// one prompt at a time.
func (e *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}
