// Package layout calls a remote layout-analysis service to extract text and
// tables from scanned or complex documents. The service returns the raw
// content plus page and table geometry; the client assembles a page map in
// which every table region is replaced by <table> markup built from the cell
// grid.
package layout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/searchkit/docindex/internal/pagemap"
)

// TransientError indicates a service failure worth retrying.
type TransientError struct {
	Status int
	Body   string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("layout service status %d: %s", e.Status, e.Body)
}

// Client talks to the layout-analysis HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

type page struct {
	Number int  `json:"number"` // one-based
	Span   span `json:"span"`
}

type cell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	RowSpan     int    `json:"rowSpan,omitempty"`
	ColumnSpan  int    `json:"columnSpan,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Content     string `json:"content"`
}

type table struct {
	PageNumber int    `json:"pageNumber"` // one-based
	RowCount   int    `json:"rowCount"`
	Spans      []span `json:"spans"`
	Cells      []cell `json:"cells"`
}

type analyzeResult struct {
	Content string  `json:"content"`
	Pages   []page  `json:"pages"`
	Tables  []table `json:"tables"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits document bytes and builds a page map from the result.
func (c *Client) Analyze(ctx context.Context, document []byte) ([]pagemap.Page, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("layout api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &TransientError{Status: resp.StatusCode, Body: truncate(string(respBody), 1024)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("layout api status %d: %s", resp.StatusCode, truncate(string(respBody), 1024))
	}

	var result analyzeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("layout error: %s: %s", result.Error.Code, result.Error.Message)
	}

	return assemblePageMap(result)
}

// assemblePageMap rebuilds each page's text from the raw content, replacing
// every character run covered by a table span with the table's HTML at the
// position where the table starts.
func assemblePageMap(result analyzeResult) ([]pagemap.Page, error) {
	texts := make([]string, 0, len(result.Pages))
	for _, pg := range result.Pages {
		tablesOnPage := make([]table, 0)
		for _, tb := range result.Tables {
			if tb.PageNumber == pg.Number {
				tablesOnPage = append(tablesOnPage, tb)
			}
		}

		pageOffset := pg.Span.Offset
		pageLength := pg.Span.Length
		if pageOffset < 0 || pageOffset+pageLength > len(result.Content) {
			return nil, fmt.Errorf("page %d span [%d,%d) outside content", pg.Number, pageOffset, pageOffset+pageLength)
		}

		// Mark which characters of the page belong to which table.
		tableChars := make([]int, pageLength)
		for j := range tableChars {
			tableChars[j] = -1
		}
		for tableID, tb := range tablesOnPage {
			for _, sp := range tb.Spans {
				for k := 0; k < sp.Length; k++ {
					idx := sp.Offset - pageOffset + k
					if idx >= 0 && idx < pageLength {
						tableChars[idx] = tableID
					}
				}
			}
		}

		var buf bytes.Buffer
		added := make(map[int]bool)
		for idx, tableID := range tableChars {
			if tableID == -1 {
				buf.WriteByte(result.Content[pageOffset+idx])
			} else if !added[tableID] {
				buf.WriteString(tableToHTML(tablesOnPage[tableID]))
				added[tableID] = true
			}
		}
		buf.WriteString(" ")
		texts = append(texts, buf.String())
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("layout result has no pages")
	}
	return pagemap.FromTexts(texts).Pages(), nil
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
