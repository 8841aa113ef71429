package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/searchkit/docindex/internal/blob"
	"github.com/searchkit/docindex/internal/config"
	"github.com/searchkit/docindex/internal/index"
)

// Orchestrator manages the document ingestion pipeline: a job registry, a
// bounded queue and a worker pool draining it.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	idx    index.Index
	blobs  blob.Store
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline around a shared worker. The worker is
// stateless, so every pool goroutine runs the same instance.
func NewOrchestrator(cfg config.Config, w *Worker, idx index.Index, blobs blob.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: w,
		idx:    idx,
		blobs:  blobs,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Index returns the search index for direct use by API handlers.
func (o *Orchestrator) Index() index.Index {
	return o.idx
}

// RemoveDocument deletes a source file from the index and its citation
// blobs. It returns how many index records and blobs were removed.
func (o *Orchestrator) RemoveDocument(ctx context.Context, sourcefile string) (records, blobs int, err error) {
	records, err = o.idx.Remove(ctx, sourcefile)
	if err != nil {
		return 0, 0, fmt.Errorf("remove from index: %w", err)
	}
	blobs, err = o.blobs.RemoveFile(ctx, sourcefile)
	if err != nil {
		return records, 0, fmt.Errorf("remove blobs: %w", err)
	}
	o.log.Info("removed document", "sourcefile", sourcefile, "records", records, "blobs", blobs)
	return records, blobs, nil
}
