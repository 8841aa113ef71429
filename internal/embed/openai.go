package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// OpenAI calls an OpenAI-compatible /v1/embeddings endpoint. Works with
// OpenAI itself and with any server speaking the same API.
type OpenAI struct {
	baseURL    string
	apiKey     string
	model      string
	dims       int
	httpClient *http.Client
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI-compatible embedding client. baseURL defaults
// to the public OpenAI API; dims defaults to 1536 (text-embedding-ada-002
// and text-embedding-3-small).
func NewOpenAI(baseURL, apiKey, model string, dims int) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dims <= 0 {
		dims = 1536
	}
	return &OpenAI{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (e *OpenAI) Name() string    { return "openai" }
func (e *OpenAI) Dimensions() int { return e.dims }

// Embed returns the embedding for a single text.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type openaiEmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openaiEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds all texts in one request.
func (e *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(openaiEmbeddingRequest{Input: texts, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, &RateLimitError{Provider: e.Name(), RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embeddings api status %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp openaiEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings api returned %d vectors for %d inputs", len(apiResp.Data), len(texts))
	}

	vecs := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Close releases idle connections.
func (e *OpenAI) Close() {
	e.httpClient.CloseIdleConnections()
}
