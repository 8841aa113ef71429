package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusSplitting JobStatus = "splitting"
	StatusEmbedding JobStatus = "embedding"
	StatusIndexing  JobStatus = "indexing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single document ingestion.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Category string    `json:"category"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	Pages          int      `json:"pages"`
	Sections       int      `json:"sections"`
	RecordsIndexed int      `json:"records_indexed"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job for one uploaded file.
func NewJob(filename, category string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetCategory records the label the categorizer picked for this document.
func (j *Job) SetCategory(label string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Category = label
	j.UpdatedAt = time.Now()
}

// SetPages records how many pages extraction produced.
func (j *Job) SetPages(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Pages = n
	j.UpdatedAt = time.Now()
}

// SetSections records how many sections the splitter produced.
func (j *Job) SetSections(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Sections = n
	j.UpdatedAt = time.Now()
}

// SetRecordsIndexed records how many records reached the index.
func (j *Job) SetRecordsIndexed(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.RecordsIndexed = n
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// ReleaseFileData drops the raw file bytes once processing no longer needs
// them, so completed jobs don't pin uploads in memory until TTL eviction.
func (j *Job) ReleaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Filename  string    `json:"filename"`
	Category  string    `json:"category"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		Category:  j.Category,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
		Progress: Progress{
			Pages:          j.Progress.Pages,
			Sections:       j.Progress.Sections,
			RecordsIndexed: j.Progress.RecordsIndexed,
			Errors:         errs,
		},
	}
}
