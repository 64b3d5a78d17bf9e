package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConvenienceMethods(t *testing.T) {
	cfg := &Config{
		configDir: "/test/config",
		Providers: map[string]*ProviderConfig{
			"anthropic": {Hosting: "anthropic", Model: "claude-3-5-sonnet-latest"},
		},
	}

	t.Run("ConfigDir", func(t *testing.T) {
		assert.Equal(t, "/test/config", cfg.ConfigDir())
	})

	t.Run("GetProvider success", func(t *testing.T) {
		p, err := cfg.GetProvider("anthropic")
		require.NoError(t, err)
		assert.Equal(t, "claude-3-5-sonnet-latest", p.Model)
	})

	t.Run("GetProvider not found", func(t *testing.T) {
		_, err := cfg.GetProvider("nonexistent")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})
}
