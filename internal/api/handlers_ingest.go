package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/searchkit/docindex/internal/parser"
	"github.com/searchkit/docindex/internal/pipeline"
)

// handleIngest accepts a multipart file upload and queues it for ingestion.
// The response carries the job ID; processing is asynchronous.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	// The layout service accepts anything document-shaped; the local
	// parsers only accept known extensions.
	if s.cfg.Extractor == "local" && !parser.IsSupportedExtension(header.Filename) {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported file type: "+header.Filename)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty file")
		return
	}

	category := r.FormValue("category")
	if category == "" {
		category = s.cfg.Category
	}

	job := pipeline.NewJob(header.Filename, category, data)
	if err := s.orchestrator.Submit(job); err != nil {
		s.log.Warn("ingest rejected", "filename", header.Filename, "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.log.Info("ingest queued", "job_id", job.ID, "filename", header.Filename, "bytes", len(data))
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

// handleJobStatus returns the state of one ingestion job.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "unknown job: "+id)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
