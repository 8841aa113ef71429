package api

import (
	"encoding/json"
	"net/http"

	"github.com/searchkit/docindex/internal/index"
)

type searchRequest struct {
	Query    string    `json:"query"`
	Vector   []float32 `json:"vector,omitempty"`
	Top      int       `json:"top"`
	Category string    `json:"category,omitempty"`
}

// handleSearch runs a keyword, vector or hybrid query against the index.
// With an embedder configured, a text query is vectorized server-side so
// plain keyword requests get hybrid ranking for free.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" && len(req.Vector) == 0 {
		writeError(w, http.StatusBadRequest, "query or vector required")
		return
	}

	if s.embedder != nil && req.Query != "" && len(req.Vector) == 0 {
		vec, err := s.embedder.Embed(r.Context(), req.Query)
		if err != nil {
			// Keyword search still works without the vector.
			s.log.Warn("query embedding failed", "error", err)
		} else {
			req.Vector = vec
		}
	}

	hits, err := s.orchestrator.Index().Search(r.Context(), index.Query{
		Text:     req.Query,
		Vector:   req.Vector,
		Top:      req.Top,
		Category: req.Category,
	})
	if err != nil {
		s.log.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search: "+err.Error())
		return
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":  hits,
		"count": len(hits),
	})
}
