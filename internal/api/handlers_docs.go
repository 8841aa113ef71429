package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/searchkit/docindex/internal/index"
)

// handleListDocs lists indexed source files with their section counts.
func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	sources, err := s.orchestrator.Index().Sources(r.Context())
	if err != nil {
		s.log.Error("list sources failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list documents: "+err.Error())
		return
	}
	if sources == nil {
		sources = []index.Source{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": sources,
		"count":     len(sources),
	})
}

// handleDeleteDoc removes a source file from the index and its citation
// blobs from the blob store.
func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	records, blobs, err := s.orchestrator.RemoveDocument(r.Context(), name)
	if err != nil {
		s.log.Error("delete document failed", "sourcefile", name, "error", err)
		writeError(w, http.StatusInternalServerError, "delete document: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sourcefile":      name,
		"records_removed": records,
		"blobs_removed":   blobs,
	})
}
