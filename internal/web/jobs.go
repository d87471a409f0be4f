package web

import (
	"sync"
	"time"
)

// JobStatus is the lifecycle state of an async reindex job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ReindexJob tracks one background catalog reindex.
type ReindexJob struct {
	mu sync.RWMutex

	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	Identities  int        `json:"identities"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a copy safe for JSON encoding while the job runs.
func (j *ReindexJob) Snapshot() ReindexJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return ReindexJob{
		ID:          j.ID,
		Status:      j.Status,
		Identities:  j.Identities,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

func (j *ReindexJob) setRunning() {
	j.mu.Lock()
	j.Status = JobStatusRunning
	j.mu.Unlock()
}

func (j *ReindexJob) complete(identities int) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusCompleted
	j.Identities = identities
	j.CompletedAt = &now
	j.mu.Unlock()
}

func (j *ReindexJob) fail(err error) {
	now := time.Now()
	j.mu.Lock()
	j.Status = JobStatusFailed
	j.Error = err.Error()
	j.CompletedAt = &now
	j.mu.Unlock()
}

// JobManager keeps reindex jobs addressable by id.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*ReindexJob
}

// NewJobManager creates an empty job manager.
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*ReindexJob)}
}

// Create registers a new pending job.
func (m *JobManager) Create(id string) *ReindexJob {
	job := &ReindexJob{
		ID:        id,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}
	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()
	return job
}

// Get returns a job by id.
func (m *JobManager) Get(id string) (*ReindexJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}
