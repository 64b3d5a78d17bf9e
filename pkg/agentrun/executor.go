package agentrun

import (
	"context"
	"fmt"
	"os"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/models"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
)

// JobExecutor adapts a Factory to pkg/jobs.Executor: one Job becomes one
// Executor Loop turn, against a persisted agent when job.AgentID is set or
// against a throwaway, unpersisted agent state for a one-shot /v1/chat
// call otherwise.
type JobExecutor struct {
	factory *Factory
	runtime config.RuntimeConfig
}

// NewJobExecutor builds the pkg/jobs.Executor implementation the Job
// Manager dispatches submissions to.
func NewJobExecutor(factory *Factory, runtime config.RuntimeConfig) *JobExecutor {
	return &JobExecutor{factory: factory, runtime: runtime}
}

// Execute runs job.Prompt through one Executor Loop turn and returns the
// final assistant message as the job's result.
func (e *JobExecutor) Execute(ctx context.Context, job models.Job) (*models.JobResult, error) {
	runtime := e.runtime
	if job.Model != "" {
		runtime.Model = job.Model
	}
	if job.Hosting != "" {
		runtime.Hosting = job.Hosting
	}

	if job.AgentID == nil {
		return e.executeEphemeral(ctx, job, runtime)
	}
	return e.executePersisted(ctx, job, runtime)
}

func (e *JobExecutor) executePersisted(ctx context.Context, job models.Job, runtime config.RuntimeConfig) (*models.JobResult, error) {
	rec, err := e.factory.registry.Get(*job.AgentID)
	if err != nil {
		return nil, err
	}

	loop, err := e.factory.BuildLoop(rec, runtime, false, nil)
	if err != nil {
		return nil, err
	}

	untrack := e.factory.TrackRunning(*job.AgentID, loop)
	result, err := loop.Run(ctx, job.Prompt)
	untrack()
	if err != nil {
		return nil, apperrors.New(apperrors.KindProviderFatal, "executor loop failed", err)
	}

	if perr := e.factory.Persist(*job.AgentID, loop); perr != nil {
		return nil, perr
	}

	return &models.JobResult{
		Response: result.FinalMessage,
		Stats: models.JobStats{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

// executeEphemeral serves a stateless /v1/chat call: a scratch working
// directory that is discarded once the turn completes, never touching the
// agent registry.
func (e *JobExecutor) executeEphemeral(ctx context.Context, job models.Job, runtime config.RuntimeConfig) (*models.JobResult, error) {
	workDir, err := os.MkdirTemp("", "tarsy-chat-*")
	if err != nil {
		return nil, fmt.Errorf("create ephemeral working directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	rec := &registry.Record{
		ID:  "ephemeral",
		CWD: workDir,
		State: models.AgentState{
			Version: 1,
			Conversation: []models.ConversationRecord{
				{Role: models.RoleSystem, Content: "You are a helpful autonomous coding agent.", IsSystemPrompt: true},
			},
		},
	}

	loop, err := e.factory.BuildLoop(rec, runtime, false, nil)
	if err != nil {
		return nil, err
	}

	result, err := loop.Run(ctx, job.Prompt)
	if err != nil {
		return nil, apperrors.New(apperrors.KindProviderFatal, "executor loop failed", err)
	}

	return &models.JobResult{
		Response: result.FinalMessage,
		Stats: models.JobStats{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
		},
	}, nil
}
