package events

import (
	"encoding/json"
	"log/slog"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// Publisher publishes typed events onto a ConnectionManager's channels.
// Each public method accepts a domain value straight from pkg/jobs or
// pkg/executor and marshals+broadcasts it — there is no database
// persistence step and no 8000-byte NOTIFY envelope limit to truncate
// around, since delivery is in-process WebSocket, not PostgreSQL NOTIFY.
// Broadcasting is fire-and-forget: a marshal failure is logged, not
// returned, so callers (the job worker loop, the executor loop) are never
// blocked or short-circuited by a streaming-transport fault.
type Publisher struct {
	manager *ConnectionManager
}

// NewPublisher creates a Publisher bound to one ConnectionManager.
func NewPublisher(manager *ConnectionManager) *Publisher {
	return &Publisher{manager: manager}
}

// PublishJobUpdate broadcasts a job_update event to job:<id> subscribers.
// Satisfies pkg/jobs.EventPublisher.
func (p *Publisher) PublishJobUpdate(job models.Job) {
	p.broadcast(JobChannel(job.ID), JobUpdatePayload{Type: EventTypeJobUpdate, Job: job})
}

// PublishMessageUpdate broadcasts a message_update event to agent:<id>
// subscribers as the Executor Loop produces each result. Satisfies
// pkg/executor.EventSink together with the agentID it is bound to.
func (p *Publisher) PublishMessageUpdate(agentID string, result models.ExecutionResult) {
	p.broadcast(AgentChannel(agentID), MessageUpdatePayload{
		Type: EventTypeMessageUpdate, AgentID: agentID, Result: result,
	})
}

// PublishChatUpdate broadcasts a chat_update event to agent:<id>
// subscribers when a new conversation record is appended.
func (p *Publisher) PublishChatUpdate(agentID string, record models.ConversationRecord) {
	p.broadcast(AgentChannel(agentID), ChatUpdatePayload{
		Type: EventTypeChatUpdate, AgentID: agentID, Record: record,
	})
}

func (p *Publisher) broadcast(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal event payload", "channel", channel, "error", err)
		return
	}
	p.manager.Broadcast(channel, data)
}

// AgentSink binds a Publisher to one agent's channel, satisfying
// pkg/executor.EventSink's OnExecutionResult(models.ExecutionResult)
// signature structurally without pkg/events importing pkg/executor.
type AgentSink struct {
	AgentID string
	Pub     *Publisher
}

// OnExecutionResult forwards result as a message_update event.
func (s AgentSink) OnExecutionResult(result models.ExecutionResult) {
	s.Pub.PublishMessageUpdate(s.AgentID, result)
}
