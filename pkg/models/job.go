package models

import "time"

// JobStatus is the lifecycle state of an asynchronous task execution.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobStats carries cumulative token/cost accounting for one job.
type JobStats struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// JobResult is the terminal payload of a completed job.
type JobResult struct {
	Response string         `json:"response"`
	Context  map[string]any `json:"context,omitempty"`
	Stats    JobStats       `json:"stats"`
}

// Job is one asynchronous execution keyed by ID in the Job Manager.
type Job struct {
	ID      string  `json:"id"`
	AgentID *string `json:"agent_id,omitempty"`
	Prompt  string  `json:"prompt"`
	Model   string  `json:"model"`
	Hosting string  `json:"hosting"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Result *JobResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// IsComplete reports whether the job has left the pending/running states.
func (j *Job) IsComplete() bool {
	return j.Status != JobPending && j.Status != JobRunning
}
