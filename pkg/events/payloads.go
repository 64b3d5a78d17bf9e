package events

import "github.com/codeready-toolchain/tarsy/pkg/models"

// JobUpdatePayload is the payload for job_update events — spec.md §4.8.
type JobUpdatePayload struct {
	Type string     `json:"type"` // always EventTypeJobUpdate
	Job  models.Job `json:"job"`
}

// MessageUpdatePayload is the payload for message_update events: one
// Execution Result as soon as the Executor Loop produces it.
type MessageUpdatePayload struct {
	Type    string                  `json:"type"` // always EventTypeMessageUpdate
	AgentID string                  `json:"agent_id"`
	Result  models.ExecutionResult `json:"result"`
}

// ChatUpdatePayload is the payload for chat_update events: a new
// conversation record (user message or assistant response) has been
// appended to an agent's history.
type ChatUpdatePayload struct {
	Type    string                    `json:"type"` // always EventTypeChatUpdate
	AgentID string                    `json:"agent_id"`
	Record  models.ConversationRecord `json:"record"`
}
