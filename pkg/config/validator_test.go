package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Runtime:   DefaultRuntimeConfig(),
		Server:    DefaultServerConfig(),
		Retention: DefaultRetentionConfig(),
		Providers: map[string]*ProviderConfig{
			"anthropic": {Hosting: "anthropic"},
		},
	}
}

func TestValidateAllAcceptsDefaults(t *testing.T) {
	require.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidateRuntimeRejectsZeroConversationLength(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime.ConversationLength = 0
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversation_length")
}

func TestValidateRuntimeRejectsEmptyHosting(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime.Hosting = ""
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosting")
}

func TestValidateServerRejectsEmptyListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddr = ""
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen_addr")
}

func TestValidateRetentionRejectsNegativeIdleDays(t *testing.T) {
	cfg := validConfig()
	cfg.Retention.AgentIdleDays = -1
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent_idle_days")
}

func TestValidateProvidersRejectsMissingHosting(t *testing.T) {
	cfg := validConfig()
	cfg.Providers["broken"] = &ProviderConfig{}
	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
