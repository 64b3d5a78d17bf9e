package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

type stubExecutor struct {
	delay   time.Duration
	err     error
	result  *models.JobResult
	started chan struct{}
}

func (s *stubExecutor) Execute(ctx context.Context, job models.Job) (*models.JobResult, error) {
	if s.started != nil {
		close(s.started)
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []models.Job
}

func (p *recordingPublisher) PublishJobUpdate(job models.Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
}

func (p *recordingPublisher) last() models.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobs[len(p.jobs)-1]
}

func waitForStatus(t *testing.T, m *Manager, id string, status models.JobStatus) models.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.Get(id)
		require.NoError(t, err)
		if job.Status == status {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, status)
	return models.Job{}
}

func TestSubmitAndCompleteJob(t *testing.T) {
	exec := &stubExecutor{result: &models.JobResult{Response: "42"}}
	pub := &recordingPublisher{}
	m := New(exec, pub, 2, 10)
	m.Start(context.Background())
	defer m.Stop()

	job, err := m.Submit("what is 6*7?", "test-model", "local", nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.Status)

	done := waitForStatus(t, m, job.ID, models.JobCompleted)
	require.NotNil(t, done.Result)
	assert.Equal(t, "42", done.Result.Response)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
}

func TestSubmitFailingJob(t *testing.T) {
	exec := &stubExecutor{err: errors.New("boom")}
	m := New(exec, nil, 1, 10)
	m.Start(context.Background())
	defer m.Stop()

	job, err := m.Submit("fail", "test-model", "local", nil)
	require.NoError(t, err)

	done := waitForStatus(t, m, job.ID, models.JobFailed)
	assert.Equal(t, "boom", done.Error)
}

func TestCancelRunningJob(t *testing.T) {
	started := make(chan struct{})
	exec := &stubExecutor{delay: time.Second, started: started}
	m := New(exec, nil, 1, 10)
	m.Start(context.Background())
	defer m.Stop()

	job, err := m.Submit("long task", "test-model", "local", nil)
	require.NoError(t, err)

	<-started
	require.NoError(t, m.Cancel(job.ID))

	done := waitForStatus(t, m, job.ID, models.JobCancelled)
	assert.Equal(t, models.JobCancelled, done.Status)
}

func TestCancelPendingJobWithoutWorkers(t *testing.T) {
	exec := &stubExecutor{}
	m := New(exec, nil, 1, 10) // no Start call: job stays pending
	job, err := m.Submit("never runs", "test-model", "local", nil)
	require.NoError(t, err)

	require.NoError(t, m.Cancel(job.ID))
	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, got.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	exec := &stubExecutor{result: &models.JobResult{Response: "ok"}}
	m := New(exec, nil, 2, 10)
	m.Start(context.Background())
	defer m.Stop()

	j1, _ := m.Submit("a", "m", "local", nil)
	j2, _ := m.Submit("b", "m", "local", nil)
	waitForStatus(t, m, j1.ID, models.JobCompleted)
	waitForStatus(t, m, j2.ID, models.JobCompleted)

	completed := m.List(ListFilter{Status: models.JobCompleted})
	assert.Len(t, completed, 2)

	failed := m.List(ListFilter{Status: models.JobFailed})
	assert.Len(t, failed, 0)
}

func TestGetUnknownJobFails(t *testing.T) {
	m := New(&stubExecutor{}, nil, 1, 10)
	_, err := m.Get("missing")
	require.Error(t, err)
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	exec := &stubExecutor{delay: time.Second, started: started}
	m := New(exec, nil, 1, 1)
	m.Start(context.Background())
	defer m.Stop()

	_, err := m.Submit("first", "m", "local", nil)
	require.NoError(t, err)
	<-started // ensure the first job is claimed before filling the queue

	_, err = m.Submit("second", "m", "local", nil)
	require.NoError(t, err)
	_, err = m.Submit("third", "m", "local", nil)
	require.Error(t, err)
}
