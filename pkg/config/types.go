package config

import "time"

// Shared types used across configuration structs.

// MaskingConfig defines data masking configuration for tool results and
// file reads flowing into a conversation (spec.md §4.4 Safety Auditor).
type MaskingConfig struct {
	Enabled        bool             `yaml:"enabled"`
	PatternGroups  []string         `yaml:"pattern_groups,omitempty"`
	Patterns       []string         `yaml:"patterns,omitempty"`
	CustomPatterns []MaskingPattern `yaml:"custom_patterns,omitempty"`
}

// MaskingPattern defines a regex-based masking pattern.
type MaskingPattern struct {
	Pattern     string `yaml:"pattern" validate:"required"`
	Replacement string `yaml:"replacement" validate:"required"`
	Description string `yaml:"description,omitempty"`
}

// RuntimeConfig holds the agent-runtime defaults applied to a newly
// created agent (spec.md §6 "Environment").
type RuntimeConfig struct {
	ConversationLength   int    `yaml:"conversation_length,omitempty" validate:"min=1"`
	DetailLength         int    `yaml:"detail_length,omitempty" validate:"min=1"`
	MaxLearningsHistory  int    `yaml:"max_learnings_history,omitempty" validate:"min=0"`
	Hosting              string `yaml:"hosting,omitempty" validate:"required"`
	Model                string `yaml:"model,omitempty" validate:"required"`
	AutoSaveConversation bool   `yaml:"auto_save_conversation"`
}

// ServerConfig holds HTTP/WebSocket listener settings (spec.md §6).
type ServerConfig struct {
	ListenAddr       string   `yaml:"listen_addr,omitempty" validate:"required"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins,omitempty"`
	AgentsDir        string   `yaml:"agents_dir,omitempty" validate:"required"`
}

// ProviderConfig names a configured LLM provider credential slot. The
// credential value itself is never stored here — only the name of the
// environment variable holding it, per spec.md §6's explicit non-goal of
// defining a credential storage format.
type ProviderConfig struct {
	Hosting   string `yaml:"hosting" validate:"required"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// RetentionConfig controls the Agent Registry / Job Manager eviction sweep.
type RetentionConfig struct {
	AgentIdleDays   int           `yaml:"agent_idle_days,omitempty" validate:"min=0"`
	JobHistoryLimit int           `yaml:"job_history_limit,omitempty" validate:"min=0"`
	SweepInterval   time.Duration `yaml:"-"`
	SweepSchedule   string        `yaml:"sweep_schedule,omitempty"`
}

// TracingConfig controls OpenTelemetry span export for the Executor Loop's
// phases and provider calls (spec.md §4.5, §6). Disabled by default: an
// agent runtime with no collector configured should not block or fail on
// trace export.
type TracingConfig struct {
	Enabled       bool    `yaml:"enabled"`
	ServiceName   string  `yaml:"service_name,omitempty"`
	Endpoint      string  `yaml:"endpoint,omitempty"` // OTLP/HTTP collector endpoint, e.g. "localhost:4318"
	Insecure      bool    `yaml:"insecure,omitempty"`
	SamplingRatio float64 `yaml:"sampling_ratio,omitempty" validate:"min=0,max=1"`
}
