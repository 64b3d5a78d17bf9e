package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/jobs"
	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

type stubExecutor struct{}

func (stubExecutor) Execute(context.Context, models.Job) (*models.JobResult, error) {
	return &models.JobResult{Response: "ok"}, nil
}

func TestSweepEvictsIdleAgents(t *testing.T) {
	reg, err := registry.Open(t.TempDir(), time.Millisecond)
	require.NoError(t, err)

	stale, err := reg.Create("stale-agent", "system prompt")
	require.NoError(t, err)
	fresh, err := reg.Create("fresh-agent", "system prompt")
	require.NoError(t, err)

	_, err = reg.Update(stale.ID, func(r *registry.Record) error {
		r.LastMessageAt = time.Now().AddDate(0, 0, -40)
		return nil
	})
	require.NoError(t, err)

	jm := jobs.New(stubExecutor{}, nil, 1, 1)
	svc := NewService(config.RetentionConfig{AgentIdleDays: 30}, reg, jm)

	svc.evictIdleAgents()

	_, err = reg.Get(stale.ID)
	require.Error(t, err)
	_, err = reg.Get(fresh.ID)
	require.NoError(t, err)
}

func TestSweepNoopsWhenAgentIdleDaysIsZero(t *testing.T) {
	reg, err := registry.Open(t.TempDir(), time.Millisecond)
	require.NoError(t, err)
	rec, err := reg.Create("agent", "system prompt")
	require.NoError(t, err)

	jm := jobs.New(stubExecutor{}, nil, 1, 1)
	svc := NewService(config.RetentionConfig{AgentIdleDays: 0}, reg, jm)
	svc.evictIdleAgents()

	_, err = reg.Get(rec.ID)
	require.NoError(t, err)
}

func TestTrimJobHistoryDelegatesToManager(t *testing.T) {
	jm := jobs.New(stubExecutor{}, nil, 1, 10)
	for i := 0; i < 5; i++ {
		job, err := jm.Submit("prompt", "model", "anthropic", nil)
		require.NoError(t, err)
		// Cancel immediately so the job is "complete" without running workers.
		require.NoError(t, jm.Cancel(job.ID))
	}

	svc := NewService(config.RetentionConfig{JobHistoryLimit: 2}, nil, jm)
	svc.trimJobHistory()

	require.Len(t, jm.List(jobs.ListFilter{}), 2)
}

func TestNewServiceFallsBackOnInvalidSchedule(t *testing.T) {
	jm := jobs.New(stubExecutor{}, nil, 1, 1)
	svc := NewService(config.RetentionConfig{SweepSchedule: "not a cron expression", SweepInterval: time.Minute}, nil, jm)
	require.Nil(t, svc.schedule)
	require.Equal(t, time.Minute, svc.nextInterval())
}
