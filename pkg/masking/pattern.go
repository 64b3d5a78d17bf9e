package masking

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/codeready-toolchain/tarsy/pkg/config"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// compilePatterns compiles the built-in pattern table plus any custom
// patterns from cfg, keyed by name. Invalid patterns are logged and
// skipped rather than failing construction — one bad custom regex
// shouldn't take every other pattern down with it.
func compilePatterns(cfg config.MaskingConfig) map[string]*CompiledPattern {
	out := make(map[string]*CompiledPattern)

	for name, p := range builtinPatterns() {
		compiled, err := regexp.Compile(p.Pattern)
		if err != nil {
			slog.Error("failed to compile built-in masking pattern, skipping", "pattern", name, "error", err)
			continue
		}
		out[name] = &CompiledPattern{Name: name, Regex: compiled, Replacement: p.Replacement}
	}

	for i, p := range cfg.CustomPatterns {
		name := fmt.Sprintf("custom:%d", i)
		compiled, err := regexp.Compile(p.Pattern)
		if err != nil {
			slog.Error("failed to compile custom masking pattern, skipping", "pattern", name, "error", err)
			continue
		}
		out[name] = &CompiledPattern{Name: name, Regex: compiled, Replacement: p.Replacement}
	}

	return out
}

// resolvePatterns expands cfg's PatternGroups and Patterns into a
// deduplicated, ordered list of compiled patterns. Custom patterns are
// always included — they aren't gated behind a group or pattern name.
func resolvePatterns(cfg config.MaskingConfig, compiled map[string]*CompiledPattern) []*CompiledPattern {
	seen := make(map[string]bool)
	var resolved []*CompiledPattern

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		if cp, ok := compiled[name]; ok {
			resolved = append(resolved, cp)
		}
	}

	groups := builtinPatternGroups()
	for _, groupName := range cfg.PatternGroups {
		for _, name := range groups[groupName] {
			add(name)
		}
	}
	for _, name := range cfg.Patterns {
		add(name)
	}
	for i := range cfg.CustomPatterns {
		add(fmt.Sprintf("custom:%d", i))
	}

	return resolved
}
