package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/searchkit/docindex/internal/section"
)

// TransientError reports a remote search service failure worth retrying:
// throttling or a server-side error.
type TransientError struct {
	Status int
	Body   string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("search service status %d: %s", e.Status, e.Body)
}

// Remote is an Index backed by a search service over HTTP.
type Remote struct {
	baseURL    string
	indexName  string
	apiKey     string
	schema     Schema
	httpClient *http.Client
}

var _ Index = (*Remote)(nil)

// NewRemote creates a client for the named index on the service at baseURL.
// The schema is sent on Ensure when the index does not exist yet.
func NewRemote(baseURL, apiKey string, schema Schema) *Remote {
	return &Remote{
		baseURL:   baseURL,
		indexName: schema.Name,
		apiKey:    apiKey,
		schema:    schema,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *Remote) Ensure(ctx context.Context) error {
	status, _, err := r.do(ctx, http.MethodGet, r.indexPath(""), nil)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("check index %s: status %d", r.indexName, status)
	}

	status, body, err := r.do(ctx, http.MethodPut, r.indexPath(""), r.schema)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return statusError("create index "+r.indexName, status, body)
	}
	return nil
}

type batchResult struct {
	Value []struct {
		Key       string `json:"key"`
		Succeeded bool   `json:"succeeded"`
		Message   string `json:"message,omitempty"`
	} `json:"value"`
}

func (r *Remote) Upsert(ctx context.Context, records []section.Record) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		payload := struct {
			Value []section.Record `json:"value"`
		}{Value: records[start:end]}

		status, body, err := r.do(ctx, http.MethodPost, r.indexPath("/docs/batch"), payload)
		if err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return statusError("upsert batch", status, body)
		}

		var result batchResult
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decode batch result: %w", err)
		}
		for _, item := range result.Value {
			if !item.Succeeded {
				return fmt.Errorf("upsert %s: %s", item.Key, item.Message)
			}
		}
	}
	return nil
}

type searchRequest struct {
	Search string    `json:"search"`
	Vector []float32 `json:"vector,omitempty"`
	Filter string    `json:"filter,omitempty"`
	Top    int       `json:"top"`
}

type searchResponse struct {
	Value []Hit `json:"value"`
	Count int   `json:"count"`
}

// Remove deletes index documents by sourcefile filter, looping until the
// service reports no matches left. Deletes take a moment to become visible
// in search results, so each round waits briefly before re-querying.
func (r *Remote) Remove(ctx context.Context, sourcefile string) (int, error) {
	filter := ""
	if sourcefile != "*" {
		filter = fmt.Sprintf("sourcefile eq '%s'", sourcefile)
	}

	removed := 0
	for {
		hits, _, err := r.search(ctx, searchRequest{Search: "", Filter: filter, Top: 1000})
		if err != nil {
			return removed, err
		}
		if len(hits) == 0 {
			return removed, nil
		}

		ids := make([]string, 0, len(hits))
		for _, h := range hits {
			ids = append(ids, h.Record.ID)
		}
		payload := struct {
			IDs []string `json:"ids"`
		}{IDs: ids}
		status, body, err := r.do(ctx, http.MethodPost, r.indexPath("/docs/delete"), payload)
		if err != nil {
			return removed, fmt.Errorf("delete batch: %w", err)
		}
		if status != http.StatusOK && status != http.StatusNoContent {
			return removed, statusError("delete batch", status, body)
		}
		removed += len(ids)

		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return removed, ctx.Err()
		}
	}
}

func (r *Remote) Search(ctx context.Context, q Query) ([]Hit, error) {
	filter := ""
	if q.Category != "" {
		filter = fmt.Sprintf("category eq '%s'", q.Category)
	}
	top := q.Top
	if top <= 0 {
		top = 10
	}
	hits, _, err := r.search(ctx, searchRequest{Search: q.Text, Vector: q.Vector, Filter: filter, Top: top})
	return hits, err
}

func (r *Remote) search(ctx context.Context, req searchRequest) ([]Hit, int, error) {
	status, body, err := r.do(ctx, http.MethodPost, r.indexPath("/docs/search"), req)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	if status != http.StatusOK {
		return nil, 0, statusError("search", status, body)
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Value, resp.Count, nil
}

func (r *Remote) Sources(ctx context.Context) ([]Source, error) {
	status, body, err := r.do(ctx, http.MethodGet, r.indexPath("/sources"), nil)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	if status != http.StatusOK {
		return nil, statusError("list sources", status, body)
	}
	var resp struct {
		Value []Source `json:"value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	return resp.Value, nil
}

func (r *Remote) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}

func (r *Remote) indexPath(suffix string) string {
	return r.baseURL + "/indexes/" + url.PathEscape(r.indexName) + suffix
}

// do sends one JSON request and returns the status with a bounded read of
// the response body.
func (r *Remote) do(ctx context.Context, method, u string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("api-key", r.apiKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func statusError(op string, status int, body []byte) error {
	msg := string(body)
	if len(msg) > 1024 {
		msg = msg[:1024]
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &TransientError{Status: status, Body: msg}
	}
	return fmt.Errorf("%s: status %d: %s", op, status, msg)
}
