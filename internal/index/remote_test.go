package index

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/searchkit/docindex/internal/section"
)

func TestRemote_EnsureCreatesMissingIndex(t *testing.T) {
	var created Schema
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("missing api-key header")
		}
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
				t.Errorf("decode schema: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "secret", DefaultSchema("docs", "en", 3))
	if err := remote.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if created.Name != "docs" || len(created.Fields) != 6 {
		t.Errorf("unexpected schema sent: %+v", created)
	}
	if created.Fields[0].Name != "id" || !created.Fields[0].Key {
		t.Errorf("id field should be the key: %+v", created.Fields[0])
	}
}

func TestRemote_EnsureSkipsExistingIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("existing index should not be recreated, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "secret", DefaultSchema("docs", "en", 3))
	if err := remote.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
}

func TestRemote_UpsertReportsItemFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"key": "a", "succeeded": true},
				{"key": "b", "succeeded": false, "message": "boom"},
			},
		})
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "secret", DefaultSchema("docs", "en", 3))
	err := remote.Upsert(context.Background(), []section.Record{{ID: "a"}, {ID: "b"}})
	if err == nil {
		t.Fatal("expected error for failed item")
	}
}

func TestRemote_ThrottlingIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "secret", DefaultSchema("docs", "en", 3))
	err := remote.Upsert(context.Background(), []section.Record{{ID: "a"}})
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if transient.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", transient.Status)
	}
}

func TestRemote_RemoveLoopsUntilEmpty(t *testing.T) {
	searches := 0
	var deleted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/indexes/docs/docs/search":
			var req searchRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Filter != "sourcefile eq 'report.pdf'" {
				t.Errorf("unexpected filter %q", req.Filter)
			}
			searches++
			if searches == 1 {
				json.NewEncoder(w).Encode(map[string]any{
					"value": []map[string]any{
						{"record": map[string]any{"id": "a"}},
						{"record": map[string]any{"id": "b"}},
					},
					"count": 2,
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"value": []any{}, "count": 0})
		case "/indexes/docs/docs/delete":
			var req struct {
				IDs []string `json:"ids"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			deleted = append(deleted, req.IDs...)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "secret", DefaultSchema("docs", "en", 3))
	n, err := remote.Remove(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n != 2 || len(deleted) != 2 {
		t.Errorf("removed %d (deleted %v), want 2", n, deleted)
	}
	if searches != 2 {
		t.Errorf("expected remove to re-check until empty, searches = %d", searches)
	}
}

func TestRemote_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Search != "vacation" || req.Top != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"record": map[string]any{"id": "x", "content": "vacation policy"}, "score": 1.5},
			},
			"count": 1,
		})
	}))
	defer srv.Close()

	remote := NewRemote(srv.URL, "secret", DefaultSchema("docs", "en", 3))
	hits, err := remote.Search(context.Background(), Query{Text: "vacation", Top: 3})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Record.ID != "x" || hits[0].Score != 1.5 {
		t.Errorf("unexpected hits: %+v", hits)
	}
}
