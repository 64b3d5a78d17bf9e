package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigYAML(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestInitializeAppliesDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultRuntimeConfig(), cfg.Runtime)
	assert.Equal(t, DefaultServerConfig(), cfg.Server)
	assert.Empty(t, cfg.Providers)
}

func TestInitializeMergesUserOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_ANTHROPIC_KEY_ENV", "ANTHROPIC_API_KEY")
	writeConfigYAML(t, dir, `
runtime:
  conversation_length: 10
  hosting: openai
  model: gpt-4o
server:
  listen_addr: ":9090"
  agents_dir: /var/lib/agents
providers:
  anthropic:
    hosting: anthropic
    api_key_env: ${TEST_ANTHROPIC_KEY_ENV}
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Runtime.ConversationLength)
	assert.Equal(t, "openai", cfg.Runtime.Hosting)
	// Unset runtime fields keep their built-in default.
	assert.Equal(t, DefaultRuntimeConfig().DetailLength, cfg.Runtime.DetailLength)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, "/var/lib/agents", cfg.Server.AgentsDir)

	require.Contains(t, cfg.Providers, "anthropic")
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Providers["anthropic"].APIKeyEnv)
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigYAML(t, dir, `
runtime:
  conversation_length: 0
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigYAML(t, dir, "runtime: [this is not a mapping")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
