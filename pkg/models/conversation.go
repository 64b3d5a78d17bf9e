package models

import "time"

// Role identifies the sender of a ConversationRecord.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationRecord is one entry in an agent's append-only turn log.
//
// The first record of every conversation is always a system prompt
// (IsSystemPrompt == true); every later record carries role user or
// assistant. See pkg/convo for the store that owns windowing,
// summarization, and ephemeral re-materialization of these records.
type ConversationRecord struct {
	Role            Role      `json:"role"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	ShouldSummarize bool      `json:"should_summarize"`
	Summarized      bool      `json:"summarized"`
	IsSystemPrompt  bool      `json:"is_system_prompt"`
	ShouldCache     bool      `json:"should_cache"`
	Ephemeral       bool      `json:"ephemeral"`
}

// SummaryPrefix marks content that has been compressed by the summarizer.
const SummaryPrefix = "[SUMMARY] "

// TruncationMarkerContent is the synthetic record inserted by the
// conversation store when the window is trimmed.
const TruncationMarkerContent = "[Some conversation history has been truncated for brevity]"
