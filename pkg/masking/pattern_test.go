package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/config"
)

func TestCompilePatternsBuiltinOnly(t *testing.T) {
	compiled := compilePatterns(config.MaskingConfig{})

	assert.Equal(t, len(builtinPatterns()), len(compiled))
	for name, cp := range compiled {
		assert.NotNil(t, cp.Regex, "pattern %s should have compiled regex", name)
		assert.NotEmpty(t, cp.Replacement, "pattern %s should have replacement", name)
	}
}

func TestCompilePatternsWithCustom(t *testing.T) {
	cfg := config.MaskingConfig{
		Enabled: true,
		CustomPatterns: []config.MaskingPattern{
			{Pattern: `CUSTOM_SECRET_[A-Za-z0-9]+`, Replacement: "[MASKED_CUSTOM]"},
		},
	}
	compiled := compilePatterns(cfg)

	assert.Equal(t, len(builtinPatterns())+1, len(compiled))
	cp, exists := compiled["custom:0"]
	require.True(t, exists, "custom pattern should be registered")
	assert.Equal(t, "[MASKED_CUSTOM]", cp.Replacement)
}

func TestCompilePatternsInvalidCustomRegexSkipped(t *testing.T) {
	cfg := config.MaskingConfig{
		Enabled: true,
		CustomPatterns: []config.MaskingPattern{
			{Pattern: `[invalid`, Replacement: "[MASKED]"},
			{Pattern: `valid_pattern`, Replacement: "[MASKED_VALID]"},
		},
	}
	compiled := compilePatterns(cfg)

	_, invalidExists := compiled["custom:0"]
	assert.False(t, invalidExists, "invalid regex pattern should be skipped")

	_, validExists := compiled["custom:1"]
	assert.True(t, validExists, "valid pattern should be compiled")
}

func TestResolvePatternsGroupExpansion(t *testing.T) {
	tests := []struct {
		name     string
		groups   []string
		minRegex int
	}{
		{name: "basic group", groups: []string{"basic"}, minRegex: 2},
		{name: "secrets group", groups: []string{"secrets"}, minRegex: 5},
		{name: "security group", groups: []string{"security"}, minRegex: 6},
		{name: "cloud group", groups: []string{"cloud"}, minRegex: 4},
		{name: "all group", groups: []string{"all"}, minRegex: 12},
		{name: "multiple groups with dedup", groups: []string{"basic", "secrets"}, minRegex: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.MaskingConfig{Enabled: true, PatternGroups: tt.groups}
			resolved := resolvePatterns(cfg, compilePatterns(cfg))
			assert.GreaterOrEqual(t, len(resolved), tt.minRegex,
				"should have at least %d patterns", tt.minRegex)
		})
	}
}

func TestResolvePatternsIndividualPatterns(t *testing.T) {
	cfg := config.MaskingConfig{Enabled: true, Patterns: []string{"api_key", "email"}}
	resolved := resolvePatterns(cfg, compilePatterns(cfg))

	assert.Len(t, resolved, 2)
	names := make([]string, len(resolved))
	for i, p := range resolved {
		names[i] = p.Name
	}
	assert.Contains(t, names, "api_key")
	assert.Contains(t, names, "email")
}

func TestResolvePatternsUnknownGroup(t *testing.T) {
	cfg := config.MaskingConfig{Enabled: true, PatternGroups: []string{"nonexistent_group"}}
	resolved := resolvePatterns(cfg, compilePatterns(cfg))
	assert.Empty(t, resolved)
}

func TestResolvePatternsWithCustomPatterns(t *testing.T) {
	cfg := config.MaskingConfig{
		Enabled:       true,
		PatternGroups: []string{"basic"},
		CustomPatterns: []config.MaskingPattern{
			{Pattern: `MY_SECRET_[A-Z]+`, Replacement: "[MASKED_MY_SECRET]"},
		},
	}
	resolved := resolvePatterns(cfg, compilePatterns(cfg))

	// basic group (api_key, password) + the custom pattern
	assert.GreaterOrEqual(t, len(resolved), 3)
}

func TestResolvePatternsDeduplication(t *testing.T) {
	// api_key appears in both the group and the individual patterns list.
	cfg := config.MaskingConfig{
		Enabled:       true,
		PatternGroups: []string{"basic"},
		Patterns:      []string{"api_key"},
	}
	resolved := resolvePatterns(cfg, compilePatterns(cfg))

	count := 0
	for _, p := range resolved {
		if p.Name == "api_key" {
			count++
		}
	}
	assert.Equal(t, 1, count, "api_key should appear only once")
}
