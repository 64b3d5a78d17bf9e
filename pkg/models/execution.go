package models

import "time"

// Action is one of the seven verbs the model can emit from an action turn.
type Action string

const (
	ActionCode Action = "CODE"
	ActionRead Action = "READ"
	ActionWrite Action = "WRITE"
	ActionEdit Action = "EDIT"
	ActionDone Action = "DONE"
	ActionAsk  Action = "ASK"
	ActionBye  Action = "BYE"
)

// ExecutionType classifies what phase of the executor loop produced a record.
type ExecutionType string

const (
	ExecutionTypeAction        ExecutionType = "ACTION"
	ExecutionTypeSecurityCheck ExecutionType = "SECURITY_CHECK"
	ExecutionTypePlan          ExecutionType = "PLAN"
	ExecutionTypeReflection    ExecutionType = "REFLECTION"
	ExecutionTypeResponse      ExecutionType = "RESPONSE"
	ExecutionTypeSystem        ExecutionType = "SYSTEM"
)

// Status is the terminal or in-flight state of an ExecutionResult.
type Status string

const (
	StatusSuccess              Status = "SUCCESS"
	StatusError                Status = "ERROR"
	StatusCancelled            Status = "CANCELLED"
	StatusConfirmationRequired Status = "CONFIRMATION_REQUIRED"
	StatusInProgress           Status = "IN_PROGRESS"
	StatusInterrupted          Status = "INTERRUPTED"
	StatusNone                 Status = "NONE"
)

// ExecutionResult is the trace of one action taken by the executor loop.
type ExecutionResult struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	Action        Action        `json:"action"`
	ExecutionType ExecutionType `json:"execution_type"`
	Status        Status        `json:"status"`

	Code           string `json:"code,omitempty"`
	Stdout         string `json:"stdout,omitempty"`
	Stderr         string `json:"stderr,omitempty"`
	Logging        string `json:"logging,omitempty"`
	FormattedPrint string `json:"formatted_print,omitempty"`
	Message        string `json:"message,omitempty"`

	Files []string `json:"files,omitempty"`

	TaskClassification string `json:"task_classification,omitempty"`

	IsStreamable bool `json:"is_streamable"`
	IsComplete   bool `json:"is_complete"`
}
