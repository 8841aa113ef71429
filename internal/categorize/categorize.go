// Package categorize labels a document with one category from a configured
// allow-list, using a chat-completion model on the document's opening text.
package categorize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls an OpenAI-compatible chat-completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	allowed    []string
	fallback   string
	httpClient *http.Client
}

// NewClient builds a categorizer restricted to the allowed labels. When the
// model answers with anything outside the list, Categorize returns fallback.
func NewClient(baseURL, apiKey, model string, allowed []string, fallback string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		model:    model,
		allowed:  allowed,
		fallback: fallback,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// maxSampleLength bounds how much document text goes into the prompt; the
// opening of a document is enough to pick a label.
const maxSampleLength = 4000

// Categorize labels the document whose opening text is sample.
func (c *Client) Categorize(ctx context.Context, filename, sample string) (string, error) {
	if len(sample) > maxSampleLength {
		sample = sample[:maxSampleLength]
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt()},
			{Role: "user", Content: fmt.Sprintf("Filename: %s\n\nDocument text:\n%s", filename, sample)},
		},
		Temperature: 0,
		MaxTokens:   20,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("categorize api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("categorize api status %d: %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("categorize error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from categorizer")
	}

	return c.validate(apiResp.Choices[0].Message.Content), nil
}

func (c *Client) systemPrompt() string {
	return fmt.Sprintf(
		"You label documents. Answer with exactly one of the following category names and nothing else: %s",
		strings.Join(c.allowed, ", "))
}

// validate maps the raw model answer onto the allow-list, falling back to
// the default label when it does not match.
func (c *Client) validate(answer string) string {
	answer = strings.TrimSpace(strings.Trim(strings.TrimSpace(answer), `"'.`))
	for _, label := range c.allowed {
		if strings.EqualFold(answer, label) {
			return label
		}
	}
	return c.fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
