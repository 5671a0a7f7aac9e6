package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cruxrec/cruxrec/pkg/pipeline"
)

// JobKind distinguishes what a job produces.
type JobKind string

const (
	JobSummarize  JobKind = "summarize"
	JobTranscribe JobKind = "transcribe"
)

// JobState is the lifecycle state of a job.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job tracks one pipeline run submitted through the HTTP API.
type Job struct {
	ID        string           `json:"id"`
	Kind      JobKind          `json:"kind"`
	URL       string           `json:"url"`
	State     JobState         `json:"state"`
	Stage     string           `json:"stage,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// jobManager runs pipeline jobs with bounded concurrency and retains their
// state for status queries and websocket subscribers.
type jobManager struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	watchers map[string][]chan Job
	sem      chan struct{}
	pipe     *pipeline.Pipeline
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func newJobManager(pipe *pipeline.Pipeline, maxJobs int, logger *zap.Logger) *jobManager {
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &jobManager{
		jobs:     make(map[string]*Job),
		watchers: make(map[string][]chan Job),
		sem:      make(chan struct{}, maxJobs),
		pipe:     pipe,
		logger:   logger,
	}
}

// Submit registers a job and starts it in the background. The returned Job
// is a snapshot; the job goroutine keeps mutating the stored copy.
func (m *jobManager) Submit(ctx context.Context, kind JobKind, req pipeline.Request) Job {
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		URL:       req.URL,
		State:     JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx, job.ID, kind, req)

	m.logger.Info("Job submitted",
		zap.String("job_id", job.ID),
		zap.String("kind", string(kind)),
		zap.String("url", req.URL))
	return snapshot
}

func (m *jobManager) run(ctx context.Context, id string, kind JobKind, req pipeline.Request) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		m.update(id, func(j *Job) {
			j.State = JobFailed
			j.Error = ctx.Err().Error()
		})
		return
	}
	defer func() { <-m.sem }()

	m.update(id, func(j *Job) { j.State = JobRunning })

	observe := func(stage pipeline.Stage, detail string) {
		m.update(id, func(j *Job) { j.Stage = string(stage) })
	}

	var (
		res *pipeline.Result
		err error
	)
	switch kind {
	case JobTranscribe:
		res, err = m.pipe.Transcript(ctx, req, observe)
	default:
		res, err = m.pipe.Run(ctx, req, observe)
	}

	if err != nil {
		m.logger.Warn("Job failed", zap.String("job_id", id), zap.Error(err))
		m.update(id, func(j *Job) {
			j.State = JobFailed
			j.Error = err.Error()
		})
		return
	}

	m.logger.Info("Job finished", zap.String("job_id", id))
	m.update(id, func(j *Job) {
		j.State = JobDone
		j.Result = res
	})
}

// Get returns a snapshot of a job.
func (m *jobManager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all known jobs.
func (m *jobManager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out
}

// Watch subscribes to state changes of a job. The returned channel receives
// a snapshot on every update and is closed by Unwatch.
func (m *jobManager) Watch(id string) (<-chan Job, func()) {
	ch := make(chan Job, 16)

	m.mu.Lock()
	m.watchers[id] = append(m.watchers[id], ch)
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		chans := m.watchers[id]
		for i, c := range chans {
			if c == ch {
				m.watchers[id] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel
}

// update applies a mutation to a job and notifies watchers. The sends stay
// under the lock: a watcher canceling concurrently closes its channel under
// the same lock, so sending outside it would race the close.
func (m *jobManager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now()
	snapshot := *job

	for _, ch := range m.watchers[id] {
		select {
		case ch <- snapshot:
		default:
			// Drop if the watcher is slow to avoid blocking job progress.
		}
	}
}

// Wait blocks until all submitted jobs have finished.
func (m *jobManager) Wait() {
	m.wg.Wait()
}
