package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/searchkit/docindex/internal/blob"
	"github.com/searchkit/docindex/internal/categorize"
	"github.com/searchkit/docindex/internal/index"
	"github.com/searchkit/docindex/internal/layout"
	"github.com/searchkit/docindex/internal/pagemap"
	"github.com/searchkit/docindex/internal/parser"
	"github.com/searchkit/docindex/internal/section"
	"github.com/searchkit/docindex/internal/splitter"
)

// Worker processes a single document job: extract pages, split into
// sections, build records, upload the citation blob and upsert the index.
type Worker struct {
	layout      *layout.Client     // nil means local parsers
	categorizer *categorize.Client // nil disables per-document labels
	builder     *section.Builder
	idx         index.Index
	blobs       blob.Store
	splitCfg    splitter.Config
	log         *slog.Logger
}

func NewWorker(lc *layout.Client, cc *categorize.Client, builder *section.Builder, idx index.Index, blobs blob.Store, splitCfg splitter.Config, log *slog.Logger) *Worker {
	return &Worker{
		layout:      lc,
		categorizer: cc,
		builder:     builder,
		idx:         idx,
		blobs:       blobs,
		splitCfg:    splitCfg,
		log:         log,
	}
}

// Process runs the full ingest pipeline for a job. A failure in any phase
// fails this document only; the worker returns and picks up the next job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)
	defer job.ReleaseFileData()

	// Phase 1: extract pages.
	job.SetStatus(StatusParsing, "parsing")
	pages, err := w.extractPages(ctx, job, log)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	pm, err := pagemap.New(pages)
	if err != nil {
		log.Error("malformed page map", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetPages(len(pages))

	// Phase 2: split into sections.
	job.SetStatus(StatusSplitting, "splitting")
	sections := splitter.Split(pm, w.splitCfg)
	job.SetSections(len(sections))
	log.Info("split document", "pages", len(pages), "sections", len(sections))
	if len(sections) == 0 {
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "splitting")
		return
	}

	// Best effort: refine the category label from the document's opening text.
	builder := *w.builder
	if job.Category != "" {
		builder.Category = job.Category
	}
	if w.categorizer != nil {
		label, err := w.categorizer.Categorize(ctx, job.Filename, pm.Text())
		if err != nil {
			log.Warn("categorize failed, keeping default", "error", err)
		} else {
			builder.Category = label
			job.SetCategory(label)
		}
	}

	// Phase 3: build records, embedding section texts when configured.
	job.SetStatus(StatusEmbedding, "embedding")
	records, err := builder.BuildBatch(ctx, job.Filename, sections)
	if err != nil {
		log.Error("record build failed", "error", err)
		job.AddError(fmt.Sprintf("embed: %s", err))
		job.SetStatus(StatusFailed, "embedding")
		return
	}

	// Phase 4: upload the citation blob, then upsert the index.
	job.SetStatus(StatusIndexing, "indexing")
	blobName := filepath.Base(job.Filename)
	if err := w.blobs.Upload(ctx, blobName, bytes.NewReader(job.FileData())); err != nil {
		log.Error("blob upload failed", "blob", blobName, "error", err)
		job.AddError(fmt.Sprintf("blob %s: %s", blobName, err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastErr = w.idx.Upsert(ctx, records)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable index error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		log.Error("index upsert failed", "error", lastErr)
		job.AddError(fmt.Sprintf("index: %s", lastErr))
		job.SetStatus(StatusFailed, "indexing")
		return
	}

	job.SetRecordsIndexed(len(records))
	job.SetStatus(StatusCompleted, "done")
	log.Info("ingest complete", "records", len(records))
}

// extractPages produces the page map input, through the layout service when
// one is configured and the local parsers otherwise.
func (w *Worker) extractPages(ctx context.Context, job *Job, log *slog.Logger) ([]pagemap.Page, error) {
	if w.layout != nil {
		var pages []pagemap.Page
		var lastErr error
		for attempt := 0; attempt < MaxRetries; attempt++ {
			pages, lastErr = w.layout.Analyze(ctx, job.FileData())
			if lastErr == nil || !IsRetryable(lastErr) {
				break
			}
			log.Warn("retryable layout error", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(Backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return pages, lastErr
	}

	p, err := parser.ForFile(job.Filename)
	if err != nil {
		return nil, err
	}
	return p.Parse(bytes.NewReader(job.FileData()), job.Filename)
}
