package executor

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/tarsy/pkg/models"
)

// hud renders the ephemeral heads-up-display record re-materialized before
// every model call — spec.md §4.3 "Ephemerality".
type hud struct {
	state *models.AgentState
	env   string
}

func (h hud) RenderHUD() string {
	var sb strings.Builder
	sb.WriteString("<environment_details>\n")
	sb.WriteString(h.env)
	sb.WriteString("\n</environment_details>\n")

	if len(h.state.Learnings) > 0 {
		sb.WriteString("<learnings>\n")
		for _, l := range h.state.Learnings {
			sb.WriteString("- " + l + "\n")
		}
		sb.WriteString("</learnings>\n")
	}
	if h.state.CurrentPlan != "" {
		fmt.Fprintf(&sb, "<current_plan>\n%s\n</current_plan>\n", h.state.CurrentPlan)
	}
	if h.state.InstructionDetails != "" {
		fmt.Fprintf(&sb, "<instruction_details>\n%s\n</instruction_details>\n", h.state.InstructionDetails)
	}
	return sb.String()
}
