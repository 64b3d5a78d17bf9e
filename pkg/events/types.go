// Package events implements the Streaming Transport (spec.md §4.8):
// per-connection WebSocket fan-out of job_update, message_update, and
// chat_update events, broadcast to every client subscribed to the
// relevant job or agent channel.
//
// ════════════════════════════════════════════════════════════════
// Event types
// ════════════════════════════════════════════════════════════════
//
//	job_update      — a Job transitions between pending/running/completed/
//	                  failed/cancelled (pkg/jobs.Manager). Channel: job:<id>.
//	message_update  — one Execution Result is appended to an agent's turn
//	                  as the Executor Loop produces it (streamable results
//	                  carry partial content; IsComplete marks the end).
//	                  Channel: agent:<id>.
//	chat_update     — the agent's conversation gains a new record (user
//	                  message or assistant response). Channel: agent:<id>.
//
// There is no cross-process NOTIFY/LISTEN fanout here: the Job Manager and
// Agent Registry are both in-memory/filesystem state owned by a single
// process, so Broadcast delivers straight to local WebSocket subscribers.
package events

const (
	EventTypeJobUpdate     = "job_update"
	EventTypeMessageUpdate = "message_update"
	EventTypeChatUpdate    = "chat_update"
)

// JobChannel returns the channel name events about one job are published
// on: "job:<id>".
func JobChannel(jobID string) string { return "job:" + jobID }

// AgentChannel returns the channel name events about one agent's
// conversation/execution stream are published on: "agent:<id>".
func AgentChannel(agentID string) string { return "agent:" + agentID }

// ClientMessage is the JSON structure for client → server WebSocket
// messages: subscribe/unsubscribe to a channel, or a keepalive ping.
type ClientMessage struct {
	Action  string `json:"action"`            // "subscribe", "unsubscribe", "ping"
	Channel string `json:"channel,omitempty"` // e.g. "job:abc-123", "agent:def-456"
}
