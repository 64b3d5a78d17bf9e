// Package masking redacts secrets and credentials out of tool-result and
// file-read content before the Safety Auditor and Executor Loop let it into
// a conversation (spec.md §4.4, §4.5.c). Grounded on the teacher's
// pkg/masking/service.go fail-closed, eagerly-compiled-patterns design,
// adapted off this runtime's single global config.MaskingConfig rather than
// the teacher's per-MCP-server registry (this runtime has no MCP servers).
package masking

import (
	"log/slog"

	"github.com/codeready-toolchain/tarsy/pkg/config"
)

// Service applies data masking to content flowing from a CODE/READ/WRITE/
// EDIT action result into the conversation. Created once per agent turn
// from config.MaskingConfig. Thread-safe and stateless aside from its
// compiled patterns.
type Service struct {
	enabled  bool
	patterns []*CompiledPattern
}

// New creates a masking service with all patterns compiled eagerly. Invalid
// patterns are logged and skipped rather than failing construction.
func New(cfg config.MaskingConfig) *Service {
	compiled := compilePatterns(cfg)
	s := &Service{
		enabled:  cfg.Enabled,
		patterns: resolvePatterns(cfg, compiled),
	}

	slog.Info("masking service initialized", "enabled", s.enabled, "patterns", len(s.patterns))
	return s
}

// Mask applies every resolved pattern to content in order and returns the
// redacted result. A disabled service, or one with no resolved patterns, is
// a no-op — masking fails open on missing configuration since the caller
// already has the content in hand either way.
func (s *Service) Mask(content string) string {
	if s == nil || !s.enabled || content == "" {
		return content
	}
	masked := content
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}
