// Package jobs implements the Job Manager (spec.md §4.7): an in-memory
// id→Job map with a bounded worker pool processing submissions
// asynchronously, publishing a job_update event on every status
// transition.
//
// Grounded on pkg/queue/pool.go's WorkerPool shape (podID-free here since
// the Job Manager runs single-process, per spec.md §4.7's "no cross-pod
// claim protocol needed") and pkg/queue/worker.go's claim/heartbeat/
// cancel-registry idiom, translated from a DB-backed claim loop onto a
// buffered Go channel.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// Executor runs one job to completion. Implemented by an adapter over
// pkg/executor.Loop — the Job Manager itself knows nothing about
// conversations, actions, or the safety auditor.
type Executor interface {
	Execute(ctx context.Context, job models.Job) (*models.JobResult, error)
}

// EventPublisher is notified on every job status transition — spec.md
// §4.8's job_update stream. Each method takes a typed payload rather than
// an untyped map, following pkg/agent/context.go's EventPublisher shape.
type EventPublisher interface {
	PublishJobUpdate(job models.Job)
}

type noopPublisher struct{}

func (noopPublisher) PublishJobUpdate(models.Job) {}

// entry pairs a Job with the cancel func for its in-flight context, guarded
// by Manager.mu.
type entry struct {
	job    models.Job
	cancel context.CancelFunc
}

// Manager owns the job table and worker pool for one process.
type Manager struct {
	mu    sync.RWMutex
	jobs  map[string]*entry
	queue chan string

	executor  Executor
	publisher EventPublisher

	workerCount int
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	started     bool
}

// New constructs a Manager. workerCount bounds how many jobs run
// concurrently; queueDepth bounds how many submissions may be pending
// before Submit blocks.
func New(executor Executor, publisher EventPublisher, workerCount, queueDepth int) *Manager {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueDepth <= 0 {
		queueDepth = 100
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Manager{
		jobs:        make(map[string]*entry),
		queue:       make(chan string, queueDepth),
		executor:    executor,
		publisher:   publisher,
		workerCount: workerCount,
		stopCh:      make(chan struct{}),
	}
}

// Start spawns the worker pool. Safe to call once; a second call is a
// no-op, matching pkg/queue/pool.go's WorkerPool.Start idempotence.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}
}

// Stop signals all workers to stop taking new jobs and waits for in-flight
// jobs to finish. It does not cancel running jobs.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Submit enqueues a new job and returns immediately with its pending
// record; the caller polls Get or subscribes to job_update events for
// completion.
func (m *Manager) Submit(prompt, model, hosting string, agentID *string) (models.Job, error) {
	job := models.Job{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Prompt:    prompt,
		Model:     model,
		Hosting:   hosting,
		Status:    models.JobPending,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = &entry{job: job}
	m.mu.Unlock()

	select {
	case m.queue <- job.ID:
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return models.Job{}, apperrors.New(apperrors.KindValidation, "job queue is at capacity", nil)
	}

	m.publisher.PublishJobUpdate(job)
	return job, nil
}

// Get returns the current state of one job.
func (m *Manager) Get(id string) (models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return models.Job{}, apperrors.New(apperrors.KindValidation, fmt.Sprintf("job %q not found", id), nil)
	}
	return e.job, nil
}

// ListFilter narrows List results by status; zero value returns every job.
type ListFilter struct {
	Status models.JobStatus
	Limit  int
	Offset int
}

// List enumerates jobs, newest first, optionally filtered by status.
func (m *Manager) List(filter ListFilter) []models.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Job, 0, len(m.jobs))
	for _, e := range m.jobs {
		if filter.Status != "" && e.job.Status != filter.Status {
			continue
		}
		out = append(out, e.job)
	}
	sortJobsNewestFirst(out)

	start := filter.Offset
	if start > len(out) {
		start = len(out)
	}
	end := len(out)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return out[start:end]
}

// TrimHistory deletes the oldest completed/failed/cancelled jobs once their
// count exceeds limit. Pending and running jobs are never trimmed. Returns
// the number of jobs deleted.
func (m *Manager) TrimHistory(limit int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	finished := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		if e.job.IsComplete() {
			finished = append(finished, e)
		}
	}
	if len(finished) <= limit {
		return 0
	}

	ids := make([]string, len(finished))
	jobsCopy := make([]models.Job, len(finished))
	for i, e := range finished {
		ids[i] = e.job.ID
		jobsCopy[i] = e.job
	}
	order := make([]int, len(jobsCopy))
	for i := range order {
		order[i] = i
	}
	sortIndicesNewestFirst(jobsCopy, order)

	trimmed := 0
	for _, idx := range order[limit:] {
		delete(m.jobs, ids[idx])
		trimmed++
	}
	return trimmed
}

func sortIndicesNewestFirst(jobs []models.Job, order []int) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && jobs[order[j]].CreatedAt.After(jobs[order[j-1]].CreatedAt); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

func sortJobsNewestFirst(jobs []models.Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].CreatedAt.After(jobs[j-1].CreatedAt); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}

// Cancel requests a running or pending job stop. A pending job is marked
// cancelled directly; a running job's context is cancelled and the worker
// observes it on its next check.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok {
		return apperrors.New(apperrors.KindValidation, fmt.Sprintf("job %q not found", id), nil)
	}
	if e.job.IsComplete() {
		return apperrors.New(apperrors.KindValidation, fmt.Sprintf("job %q already finished", id), nil)
	}
	if e.cancel != nil {
		e.cancel()
		return nil
	}
	e.job.Status = models.JobCancelled
	now := time.Now()
	e.job.CompletedAt = &now
	m.publisher.PublishJobUpdate(e.job)
	return nil
}

func (m *Manager) runWorker(ctx context.Context, workerNum int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) process(parent context.Context, id string) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if e.job.Status == models.JobCancelled {
		m.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.job.Status = models.JobRunning
	started := time.Now()
	e.job.StartedAt = &started
	job := e.job
	m.mu.Unlock()
	m.publisher.PublishJobUpdate(job)

	result, err := m.executor.Execute(jobCtx, job)
	cancel()

	m.mu.Lock()
	e, ok = m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	completed := time.Now()
	e.job.CompletedAt = &completed
	e.cancel = nil
	switch {
	case jobCtx.Err() != nil && err != nil:
		e.job.Status = models.JobCancelled
	case err != nil:
		e.job.Status = models.JobFailed
		e.job.Error = err.Error()
		slog.Error("job execution failed", "job_id", id, "error", err)
	default:
		e.job.Status = models.JobCompleted
		e.job.Result = result
	}
	job = e.job
	m.mu.Unlock()

	m.publisher.PublishJobUpdate(job)
}
